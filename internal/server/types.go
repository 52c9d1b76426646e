// Package server exposes practice sessions over a small JSON HTTP API.
// Each session is driven through its own mutex, so concurrent requests for
// one session are serialized while different sessions proceed in parallel.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// Store is the persistence the API needs. *session.Store satisfies it.
type Store interface {
	History(ctx context.Context, limit int) ([]interview.HistoryEntry, error)
	SaveTranscript(ctx context.Context, s *interview.Session) error
	Finished(ctx context.Context, sessionID string) (bool, error)
}

// DefaultSessionTTL is how long an idle unfinished session stays live.
const DefaultSessionTTL = 2 * time.Hour

// handle guards one live session.
type handle struct {
	mu       sync.Mutex
	sess     *interview.Session
	finished bool

	lastUsed time.Time // guarded by registry.mu
}

// registry holds the live sessions by ID. Finished sessions are removed and
// idle ones expire after ttl; both remain readable from the store.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*handle
	ttl      time.Duration
	now      func() time.Time
}

func newRegistry(ttl time.Duration) *registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &registry{
		sessions: make(map[string]*handle),
		ttl:      ttl,
		now:      time.Now,
	}
}

// put registers s and evicts handles idle for longer than ttl.
func (r *registry) put(s *interview.Session) *handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, h := range r.sessions {
		if now.Sub(h.lastUsed) > r.ttl {
			delete(r.sessions, id)
		}
	}

	h := &handle{sess: s, lastUsed: now}
	r.sessions[s.ID] = h
	return h
}

func (r *registry) get(id string) (*handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[id]
	if ok {
		h.lastUsed = r.now()
	}
	return h, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// --- Wire types ---

// CreateSessionRequest starts a session. An empty CaseID selects the
// default case.
type CreateSessionRequest struct {
	CaseID string `json:"case_id"`
}

// SessionView is the JSON form of a session.
type SessionView struct {
	ID             string              `json:"id"`
	Case           interview.Case      `json:"case"`
	Stage          string              `json:"stage"`
	StageIndex     int                 `json:"stage_index"`
	Stages         []string            `json:"stages"`
	StageComplete  bool                `json:"stage_complete"`
	CanAdvance     bool                `json:"can_advance"`
	Finished       bool                `json:"finished"`
	StartedAt      time.Time           `json:"started_at"`
	ElapsedSeconds int64               `json:"elapsed_seconds"`
	Messages       []interview.Message `json:"messages"`
}

// SubmitRequest carries one candidate message.
type SubmitRequest struct {
	Text string `json:"text"`
}

// SubmitResponse carries the interviewer's reply.
type SubmitResponse struct {
	Reply   interview.Message `json:"reply"`
	Session SessionView       `json:"session"`
}

// AdvanceResponse reports whether the stage moved.
type AdvanceResponse struct {
	Advanced bool        `json:"advanced"`
	Session  SessionView `json:"session"`
}

// FinishRequest ends a session. Feedback defaults to "Completed".
type FinishRequest struct {
	Feedback string `json:"feedback"`
}

// FinishResponse carries the recorded history entry.
type FinishResponse struct {
	Entry   interview.HistoryEntry `json:"entry"`
	Session SessionView            `json:"session"`
}

// HistoryResponse lists finished sessions, oldest first.
type HistoryResponse struct {
	Entries []interview.HistoryEntry `json:"entries"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
