package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

const maxExplainBody = 1 << 20

// Handler returns the full HTTP surface of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	mux.HandleFunc("POST /api/sessions/{id}/explain", s.handleExplain)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/sessions/{id}/history", s.handleClearHistory)
	mux.HandleFunc("GET /api/sessions/{id}/history/latest", s.handleLatest)
	mux.HandleFunc("GET /api/sessions/{id}/history/latest/export", s.handleExport)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	return cors(mux)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	jsonOK(w, map[string]any{"session_id": sess.ID}, 201)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Delete(id) {
		jsonErr(w, "session not found", 404)
		return
	}
	s.explainer.EndSession(r.Context(), id, "closed")
	w.WriteHeader(204)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Code        string `json:"code"`
		Language    string `json:"language"`
		DetailLevel string `json:"detail_level"`
		Model       string `json:"model"`
		Region      string `json:"region"`
		APIKey      string `json:"api_key"`
		ProjectID   string `json:"project_id"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxExplainBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonErr(w, "body too large", 413)
			return
		}
		jsonErr(w, "invalid body", 400)
		return
	}

	// A call that has been issued runs to completion even if the client
	// goes away; each outbound attempt is bounded by the HTTP client timeout.
	ctx := context.WithoutCancel(r.Context())
	rec, err := s.explainer.Explain(ctx, sess, Request{
		Code:        req.Code,
		Language:    req.Language,
		DetailLevel: req.DetailLevel,
		Model:       req.Model,
		Region:      req.Region,
		Credentials: Credentials{APIKey: req.APIKey, ProjectID: req.ProjectID},
	})
	var ve *ValidationError
	if errors.As(err, &ve) {
		jsonErr(w, ve.Error(), 400)
		return
	}
	if err != nil {
		jsonErr(w, "explain failed", 500)
		return
	}
	jsonOK(w, rec, 201)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	jsonOK(w, map[string]any{"records": sess.Recent(), "count": sess.Len()}, 200)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.explainer.ClearHistory(r.Context(), sess)
	w.WriteHeader(204)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rec, ok := sess.Latest()
	if !ok {
		jsonErr(w, "no explanations yet", 404)
		return
	}
	jsonOK(w, rec, 200)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rec, ok := sess.Latest()
	if !ok {
		jsonErr(w, "no explanations yet", 404)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(rec)+`"`)
	w.WriteHeader(200)
	w.Write([]byte(ExportText(rec)))
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, NewCatalog(s.cfg), 200)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{
		"status":                 "online",
		"sessions":               s.sessions.Len(),
		"clients":                s.hub.ClientCount(),
		"credentials_configured": s.cfg.APIKey != "" && s.cfg.ProjectID != "",
	}, 200)
}

// handleWS attaches a browser to an existing session's event stream.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		jsonErr(w, "session required", 400)
		return
	}
	if _, ok := s.sessions.Get(id); !ok {
		jsonErr(w, "session not found", 404)
		return
	}
	s.hub.ServeWS(w, r)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		jsonErr(w, "session not found", 404)
	}
	return sess, ok
}

func jsonOK(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}
