package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(iamURL, watsonxURL string) Config {
	return Config{
		APIKey:       "secret-api-key",
		ProjectID:    "proj",
		Region:       RegionUSSouth,
		Model:        ModelLlama32,
		IAMURL:       iamURL,
		WatsonxURL:   watsonxURL,
		APIPort:      "0",
		HTTPTimeout:  5 * time.Second,
		RetryMax:     3,
		RetryBackoff: 5 * time.Millisecond,
		SessionTTL:   time.Hour,
	}
}

var fastRetry = RetryPolicy{MaxTries: 3, Initial: 5 * time.Millisecond}

// upstream is an httptest server that counts hits.
type upstream struct {
	*httptest.Server
	hits atomic.Int32
}

func newUpstream(t *testing.T, h http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func tokenHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": token, "expires_in": 3600})
	}
}

func generationHandler(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"generated_text": text}},
		})
	}
}

func statusHandler(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		w.Write([]byte(body))
	}
}
