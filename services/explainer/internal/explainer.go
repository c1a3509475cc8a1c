package internal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forge-ai/explainer/shared/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Credentials are supplied once per session (or per request) and used on
// every call.
type Credentials struct {
	APIKey    string
	ProjectID string
}

// Request is one explanation call as submitted by the presentation layer.
// Empty Model, Region or credential fields fall back to configuration.
type Request struct {
	Code        string
	Language    string
	DetailLevel string
	Model       string
	Region      string
	Credentials Credentials
}

// Outcome is the tagged result of Exchange → Request → Extract.
type Outcome struct {
	Text string
	Err  error
}

func (o Outcome) Failed() bool { return o.Err != nil }

// Status is the generation endpoint's HTTP status when it answered non-200.
func (o Outcome) Status() int {
	var ge *GenerationError
	if errors.As(o.Err, &ge) {
		return ge.Status
	}
	return 0
}

// Display renders the outcome as text: the explanation itself, the endpoint's
// status and body, or a generic failure line.
func (o Outcome) Display() string {
	if o.Err == nil {
		return o.Text
	}
	var ge *GenerationError
	if errors.As(o.Err, &ge) {
		return ge.Error()
	}
	return "Error explaining code: " + o.Err.Error()
}

type TokenSource interface {
	Token(ctx context.Context, apiKey string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, token string, req GenerationRequest) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Notifier pushes a wrapped event to the browsers attached to a session.
type Notifier interface {
	Broadcast(sessionID string, msg []byte)
}

// Explainer runs explanation requests and records their outcomes.
type Explainer struct {
	cfg     Config
	tokens  TokenSource
	gen     Generator
	pub     Publisher
	notify  Notifier
	metrics *Metrics
}

type Option func(*Explainer)

func WithPublisher(p Publisher) Option { return func(e *Explainer) { e.pub = p } }
func WithNotifier(n Notifier) Option   { return func(e *Explainer) { e.notify = n } }
func WithMetrics(m *Metrics) Option    { return func(e *Explainer) { e.metrics = m } }

func NewExplainer(cfg Config, tokens TokenSource, gen Generator, opts ...Option) *Explainer {
	e := &Explainer{cfg: cfg, tokens: tokens, gen: gen}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve fills defaults and validates req without touching the network.
func (e *Explainer) Resolve(req Request) (Request, error) {
	if req.Credentials.APIKey == "" {
		req.Credentials.APIKey = e.cfg.APIKey
	}
	if req.Credentials.ProjectID == "" {
		req.Credentials.ProjectID = e.cfg.ProjectID
	}
	if req.Model == "" {
		req.Model = e.cfg.Model
	}
	if req.Region == "" {
		req.Region = e.cfg.Region
	}

	switch {
	case req.Credentials.APIKey == "":
		return req, &ValidationError{Field: "api_key", Reason: "required"}
	case req.Credentials.ProjectID == "":
		return req, &ValidationError{Field: "project_id", Reason: "required"}
	case strings.TrimSpace(req.Code) == "":
		return req, &ValidationError{Field: "code", Reason: "please enter some code to explain"}
	case !validLanguage(req.Language):
		return req, &ValidationError{Field: "language", Reason: "unsupported language " + quote(req.Language)}
	case !validLevel(req.DetailLevel):
		return req, &ValidationError{Field: "detail_level", Reason: "must be one of " + strings.Join(DetailLevels, ", ")}
	case !validModel(req.Model):
		return req, &ValidationError{Field: "model", Reason: "unknown model " + quote(req.Model)}
	case !validRegion(req.Region):
		return req, &ValidationError{Field: "region", Reason: "unknown region " + quote(req.Region)}
	}
	return req, nil
}

// Run performs one token exchange followed by one generation request. It
// never fails outright; failures are carried in the Outcome.
func (e *Explainer) Run(ctx context.Context, req Request) Outcome {
	token, err := e.tokens.Token(ctx, req.Credentials.APIKey)
	e.metrics.observeToken(err)
	if err != nil {
		return Outcome{Err: err}
	}

	text, err := e.gen.Generate(ctx, token, GenerationRequest{
		Prompt:    BuildPrompt(req.Code, req.Language, req.DetailLevel),
		ModelID:   req.Model,
		ProjectID: req.Credentials.ProjectID,
		Region:    req.Region,
	})
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Text: text}
}

// Explain validates req, runs it and appends the result to s. Only
// validation errors are returned; upstream failures become failed records.
func (e *Explainer) Explain(ctx context.Context, s *Session, req Request) (Record, error) {
	req, err := e.Resolve(req)
	if err != nil {
		return Record{}, err
	}

	log.Info().
		Str("session", s.ID).
		Str("language", req.Language).
		Str("level", req.DetailLevel).
		Str("model", req.Model).
		Str("region", req.Region).
		Msg("explaining code")

	start := time.Now()
	out := e.Run(ctx, req)
	e.metrics.observeExplanation(req.Model, out.Failed(), time.Since(start))

	rec := Record{
		ID:          uuid.New().String(),
		Code:        req.Code,
		Language:    req.Language,
		DetailLevel: req.DetailLevel,
		Model:       req.Model,
		Region:      req.Region,
		Explanation: out.Display(),
		Failed:      out.Failed(),
		Status:      out.Status(),
		Timestamp:   time.Now(),
	}
	n := s.Append(rec)

	key := events.ExplainComplete
	if out.Failed() {
		key = events.ExplainFailed
		log.Warn().Err(out.Err).Str("session", s.ID).Msg("explanation failed")
	} else {
		log.Info().Str("session", s.ID).Int("chars", len(out.Text)).Int("history", n).Dur("took", time.Since(start)).Msg("explanation ready")
	}
	e.emit(ctx, s.ID, key, events.ExplanationPayload{
		SessionID:   s.ID,
		RecordID:    rec.ID,
		Language:    rec.Language,
		DetailLevel: rec.DetailLevel,
		Model:       rec.Model,
		Region:      rec.Region,
		Code:        rec.Code,
		Explanation: rec.Explanation,
		Failed:      rec.Failed,
		Status:      rec.Status,
		CreatedAt:   rec.Timestamp,
	})
	return rec, nil
}

// ClearHistory empties s and announces it.
func (e *Explainer) ClearHistory(ctx context.Context, s *Session) int {
	n := s.Clear()
	log.Info().Str("session", s.ID).Int("removed", n).Msg("history cleared")
	e.emit(ctx, s.ID, events.HistoryCleared, events.HistoryClearedPayload{SessionID: s.ID, Removed: n})
	return n
}

// EndSession announces that a session is gone.
func (e *Explainer) EndSession(ctx context.Context, sessionID, reason string) {
	log.Info().Str("session", sessionID).Str("reason", reason).Msg("session ended")
	e.emit(ctx, sessionID, events.SessionEnded, events.SessionEndedPayload{SessionID: sessionID, Reason: reason})
}

func (e *Explainer) emit(ctx context.Context, sessionID, routingKey string, payload any) {
	b, err := events.Wrap(routingKey, payload)
	if err != nil {
		log.Error().Err(err).Str("key", routingKey).Msg("wrap event")
		return
	}
	if e.notify != nil {
		e.notify.Broadcast(sessionID, b)
	}
	if e.pub != nil {
		if err := e.pub.Publish(ctx, routingKey, b); err != nil {
			log.Error().Err(err).Str("key", routingKey).Msg("publish event")
		}
	}
}

func quote(s string) string { return `"` + s + `"` }
