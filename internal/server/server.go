package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/metrics"
	"github.com/consultprep-dev/consultprep/internal/stats"
)

// DefaultFeedback is recorded when a finish request carries none.
const DefaultFeedback = "Completed"

// Deps are the collaborators a Server drives.
type Deps struct {
	Controller *interview.Controller
	Library    *cases.Library
	Store      Store
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Stats      stats.Options
	// SessionTTL expires idle unfinished sessions. Zero means DefaultSessionTTL.
	SessionTTL time.Duration
}

// Server is the practice HTTP API.
type Server struct {
	deps     Deps
	sessions *registry
	listener net.Listener
	server   *http.Server
	handler  http.Handler
}

// New creates a server with its routes. It does not listen yet.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{deps: deps, sessions: newRegistry(deps.SessionTTL)}

	mux := http.NewServeMux()
	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /api/cases", s.handleCases)
	s.route(mux, "POST /api/sessions", s.handleCreateSession)
	s.route(mux, "GET /api/sessions/{id}", s.handleGetSession)
	s.route(mux, "POST /api/sessions/{id}/messages", s.handleSubmit)
	s.route(mux, "POST /api/sessions/{id}/advance", s.handleAdvance)
	s.route(mux, "POST /api/sessions/{id}/finish", s.handleFinish)
	s.route(mux, "GET /api/stats", s.handleStats)
	s.route(mux, "GET /api/history", s.handleHistory)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = mux
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds addr. Use "127.0.0.1:0" for a random port.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: binding listener: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Addr returns the address the server is listening on (e.g. "127.0.0.1:12345").
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks serving HTTP requests until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve() error {
	if err := s.server.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// route registers h under pattern and records request metrics labelled by
// the pattern rather than the raw path.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordHTTPRequest(r.Method, pattern, rec.status, time.Since(start))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries := s.deps.Library.Filter(cases.Filter{
		Query:      q.Get("q"),
		Difficulty: q.Get("difficulty"),
		Industry:   q.Get("industry"),
		Type:       q.Get("type"),
	})
	if entries == nil {
		entries = []cases.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !readJSON(w, r, &req) {
		return
	}

	entry := s.deps.Library.Default()
	if req.CaseID != "" {
		var ok bool
		if entry, ok = s.deps.Library.Get(req.CaseID); !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown case %q", req.CaseID))
			return
		}
	}

	sess := s.deps.Controller.Start(entry.Descriptor())
	h := s.sessions.put(sess)

	h.mu.Lock()
	defer h.mu.Unlock()
	s.saveTranscript(r.Context(), sess)
	writeJSON(w, http.StatusCreated, s.view(h))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, s.view(h))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req SubmitRequest
	if !readJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		writeError(w, http.StatusConflict, "session already finished")
		return
	}

	reply, err := s.deps.Controller.Submit(r.Context(), h.sess, req.Text)
	switch {
	case errors.Is(err, interview.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, interview.ErrTurnPending), errors.Is(err, interview.ErrSessionFinished):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.saveTranscript(r.Context(), h.sess)
	writeJSON(w, http.StatusOK, SubmitResponse{Reply: reply, Session: s.view(h)})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		writeError(w, http.StatusConflict, "session already finished")
		return
	}

	advanced := s.deps.Controller.Advance(h.sess)
	if advanced {
		s.saveTranscript(r.Context(), h.sess)
	}
	writeJSON(w, http.StatusOK, AdvanceResponse{Advanced: advanced, Session: s.view(h)})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req FinishRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Feedback == "" {
		req.Feedback = DefaultFeedback
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		writeError(w, http.StatusConflict, "session already finished")
		return
	}

	s.saveTranscript(r.Context(), h.sess)
	entry, err := s.deps.Controller.Finish(r.Context(), h.sess, req.Feedback)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.finished = true
	s.sessions.remove(h.sess.ID)
	writeJSON(w, http.StatusOK, FinishResponse{Entry: entry, Session: s.view(h)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Store.History(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(entries, s.deps.Stats))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	entries, err := s.deps.Store.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []interview.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// --- Helpers ---

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*handle, bool) {
	id := r.PathValue("id")
	h, ok := s.sessions.get(id)
	if ok {
		return h, true
	}

	finished, err := s.deps.Store.Finished(r.Context(), id)
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case finished:
		writeError(w, http.StatusGone, fmt.Sprintf("session %q already finished", id))
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown session %q", id))
	}
	return nil, false
}

// saveTranscript persists the transcript. Failures are logged; the live
// session stays authoritative.
func (s *Server) saveTranscript(ctx context.Context, sess *interview.Session) {
	if err := s.deps.Store.SaveTranscript(ctx, sess); err != nil {
		s.deps.Logger.Warn("saving transcript failed",
			zap.String("session", sess.ID),
			zap.Error(err))
	}
}

// view must be called with h.mu held.
func (s *Server) view(h *handle) SessionView {
	sess := h.sess
	names := make([]string, len(interview.Stages))
	for i, st := range interview.Stages {
		names[i] = st.String()
	}
	return SessionView{
		ID:             sess.ID,
		Case:           sess.Case,
		Stage:          sess.Stage().String(),
		StageIndex:     sess.StageIndex(),
		Stages:         names,
		StageComplete:  sess.StageComplete(),
		CanAdvance:     !h.finished && !sess.Stage().Terminal(),
		Finished:       h.finished,
		StartedAt:      sess.StartTime,
		ElapsedSeconds: int64(sess.Elapsed(time.Now()).Seconds()),
		Messages:       sess.Messages(),
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		// Allow empty body for requests with no fields.
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encoding response: %v", err), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
