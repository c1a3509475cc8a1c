package internal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is an immutable snapshot of one completed explanation request.
// Explanation always holds displayable text; Failed and Status tell a
// successful explanation apart from a rendered failure.
type Record struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	DetailLevel string    `json:"detail_level"`
	Model       string    `json:"model"`
	Region      string    `json:"region"`
	Explanation string    `json:"explanation"`
	Failed      bool      `json:"failed"`
	Status      int       `json:"status,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

const stampLayout = "2006-01-02 15:04:05"

// Stamp is the record's timestamp in the form shown to users.
func (r Record) Stamp() string { return r.Timestamp.Format(stampLayout) }

// Session owns one user's history. History is append-only; the only removal
// is Clear.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	lastUsed time.Time
	history  []Record
}

func NewSession() *Session {
	now := time.Now()
	return &Session{ID: uuid.New().String(), CreatedAt: now, lastUsed: now}
}

// Append adds r as the latest record and returns the new history length.
func (s *Session) Append(r Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, r)
	s.lastUsed = time.Now()
	return len(s.history)
}

func (s *Session) Latest() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return Record{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Records returns a copy in insertion order.
func (s *Session) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.history))
	copy(out, s.history)
	return out
}

// Recent returns a copy, most recent first.
func (s *Session) Recent() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// Clear empties the history and returns how many records were dropped.
func (s *Session) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	s.history = nil
	s.lastUsed = time.Now()
	return n
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// Sessions is the set of live sessions, expired after ttl of inactivity.
type Sessions struct {
	ttl time.Duration

	mu sync.RWMutex
	m  map[string]*Session
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, m: make(map[string]*Session)}
}

func (ss *Sessions) Create() *Session {
	s := NewSession()
	ss.mu.Lock()
	ss.m[s.ID] = s
	ss.mu.Unlock()
	return s
}

// Get returns the session and marks it as used.
func (ss *Sessions) Get(id string) (*Session, bool) {
	ss.mu.RLock()
	s, ok := ss.m[id]
	ss.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

func (ss *Sessions) Delete(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.m[id]; !ok {
		return false
	}
	delete(ss.m, id)
	return true
}

func (ss *Sessions) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.m)
}

// Sweep drops every session idle since before now-ttl and returns their IDs.
func (ss *Sessions) Sweep(now time.Time) []string {
	cutoff := now.Add(-ss.ttl)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	var expired []string
	for id, s := range ss.m {
		if s.idleSince().Before(cutoff) {
			delete(ss.m, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// RunJanitor sweeps periodically until ctx is done, calling onExpire for
// every session it drops.
func (ss *Sessions) RunJanitor(ctx context.Context, every time.Duration, onExpire func(id string)) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			for _, id := range ss.Sweep(now) {
				onExpire(id)
			}
		}
	}
}
