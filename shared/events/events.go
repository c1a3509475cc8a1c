// Package events defines the message contract published on RabbitMQ and
// pushed to browsers over WebSocket.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ── Routing keys (RabbitMQ topic exchange: explainer.events) ─────────────────
const (
	ExplainComplete = "explain.complete"
	ExplainFailed   = "explain.failed"
	HistoryCleared  = "history.cleared"
	SessionEnded    = "session.ended"
)

// ── Envelope wraps every message ─────────────────────────────────────────────

type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	Timestamp  time.Time       `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func Wrap(routingKey string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.New().String(),
		RoutingKey: routingKey,
		Timestamp:  time.Now(),
		Payload:    p,
	})
}

func Unwrap[T any](raw []byte) (*T, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var t T
	return &t, json.Unmarshal(env.Payload, &t)
}

func UnwrapEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	return &env, json.Unmarshal(raw, &env)
}

// ── Payload types ─────────────────────────────────────────────────────────────

// ExplanationPayload is published for both explain.complete and explain.failed.
// Code and explanation text are included so downstream consumers can archive
// the exchange; credentials never are.
type ExplanationPayload struct {
	SessionID   string    `json:"session_id"`
	RecordID    string    `json:"record_id"`
	Language    string    `json:"language"`
	DetailLevel string    `json:"detail_level"`
	Model       string    `json:"model"`
	Region      string    `json:"region"`
	Code        string    `json:"code"`
	Explanation string    `json:"explanation"`
	Failed      bool      `json:"failed"`
	Status      int       `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type HistoryClearedPayload struct {
	SessionID string `json:"session_id"`
	Removed   int    `json:"removed"`
}

type SessionEndedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}
