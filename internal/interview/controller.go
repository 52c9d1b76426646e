package interview

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each generator and evaluator call.
const DefaultTimeout = 10 * time.Second

// Fixed interviewer utterances.
const (
	AdvanceReply     = "You seem ready to move on. The next stage is unlocked whenever you are."
	FallbackReply    = "I'm having trouble reaching the interviewer service, but let's continue. What are your thoughts on the drivers?"
	RateLimitedReply = "Free limits expired. Please try again later."
)

// Fallback reasons passed to observers.
const (
	ReasonTimeout             = "timeout"
	ReasonRateLimited         = "rate_limited"
	ReasonUnavailable         = "unavailable"
	ReasonNoEvaluator         = "evaluator_unavailable"
	ReasonMalformedEvaluation = "malformed_evaluation"
)

// advancePattern matches candidate phrases that unlock the next stage.
var advancePattern = regexp.MustCompile(`(?i)\b(next|move on|proceed\w*|conclusion\w*)\b`)

// ReadyToAdvance reports whether text asks to move to the next stage.
func ReadyToAdvance(text string) bool {
	return advancePattern.MatchString(text)
}

// Observer is notified of session lifecycle events. Implementations must be
// fast; they run inline with the controller call.
type Observer interface {
	SessionStarted(s *Session)
	StageAdvanced(s *Session)
	Fallback(s *Session, reason string, err error)
	SessionFinished(s *Session, entry HistoryEntry)
}

// Controller runs interview sessions against a Generator and records
// finished sessions to a Recorder. One Controller may serve many sessions.
type Controller struct {
	gen       Generator
	rec       Recorder
	logger    *zap.Logger
	observers []Observer
	timeout   time.Duration
	candidate string
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCandidate sets the name used in the welcome message.
func WithCandidate(name string) Option {
	return func(c *Controller) { c.candidate = strings.TrimSpace(name) }
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a Controller. gen and rec are required.
func NewController(gen Generator, rec Recorder, opts ...Option) *Controller {
	c := &Controller{
		gen:     gen,
		rec:     rec,
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a new session for cs with a single welcome message.
func (c *Controller) Start(cs Case) *Session {
	now := c.now()
	s := &Session{
		ID:        uuid.New().String(),
		Case:      cs,
		StartTime: now,
	}
	s.append(RoleInterviewer, c.welcome(cs), now)

	c.logger.Info("session started",
		zap.String("session", s.ID),
		zap.String("case", cs.Identity()))
	for _, o := range c.observers {
		o.SessionStarted(s)
	}
	return s
}

// Reset returns current if it was built for the same case as cs, and a
// fresh session otherwise. Callers invoke it whenever the selected case may
// have changed.
func (c *Controller) Reset(current *Session, cs Case) *Session {
	if current != nil && current.Case.Identity() == cs.Identity() {
		return current
	}
	return c.Start(cs)
}

func (c *Controller) welcome(cs Case) string {
	greeting := "Hello."
	if c.candidate != "" {
		greeting = fmt.Sprintf("Hello %s.", c.candidate)
	}
	problem := strings.TrimRight(strings.TrimSpace(cs.Problem), ".")
	return fmt.Sprintf("%s I'm the Case Lead. We are looking at '%s', a %s company.\n\n"+
		"Situation: %s.\n\n"+
		"Take a moment to gather your thoughts. When ready, ask any clarifying questions.",
		greeting, cs.Company, cs.Industry, problem)
}

// Submit records a candidate message and the interviewer's reply. Generator
// failures never surface here: they are replaced by a fallback utterance.
// The returned error reports caller misuse only.
func (c *Controller) Submit(ctx context.Context, s *Session, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if s.Finished() {
		return Message{}, ErrSessionFinished
	}
	if !s.pending.CompareAndSwap(false, true) {
		return Message{}, ErrTurnPending
	}
	defer s.pending.Store(false)

	history := s.Messages()
	s.append(RoleCandidate, text, c.now())

	if ReadyToAdvance(text) {
		s.stageComplete = true
		return s.append(RoleInterviewer, AdvanceReply, c.now()), nil
	}

	reply := c.generate(ctx, s, Request{
		Case:    s.Case,
		Stage:   s.Stage(),
		Text:    text,
		History: history,
	})
	return s.append(RoleInterviewer, reply, c.now()), nil
}

type generateResult struct {
	text string
	err  error
}

type evaluateResult struct {
	breakdown Breakdown
	err       error
}

func (c *Controller) generate(ctx context.Context, s *Session, req Request) string {
	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan generateResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generateResult{err: fmt.Errorf("%w: panic: %v", ErrGeneratorUnavailable, r)}
			}
		}()
		text, err := c.gen.Generate(gctx, req)
		done <- generateResult{text: text, err: err}
	}()

	var res generateResult
	select {
	case res = <-done:
	case <-gctx.Done():
		res.err = fmt.Errorf("%w: %w", ErrGeneratorUnavailable, gctx.Err())
	}

	if res.err == nil && strings.TrimSpace(res.text) != "" {
		return res.text
	}
	if res.err == nil {
		res.err = fmt.Errorf("%w: empty reply", ErrGeneratorUnavailable)
	}

	reason, reply := ReasonUnavailable, FallbackReply
	switch {
	case errors.Is(res.err, ErrRateLimited):
		reason, reply = ReasonRateLimited, RateLimitedReply
	case errors.Is(res.err, context.DeadlineExceeded):
		reason = ReasonTimeout
	}

	c.logger.Warn("response generator failed, using fallback",
		zap.String("session", s.ID),
		zap.String("stage", req.Stage.String()),
		zap.String("reason", reason),
		zap.Error(res.err))
	for _, o := range c.observers {
		o.Fallback(s, reason, res.err)
	}
	return reply
}

// Advance moves to the next stage and posts its guiding prompt. At the
// final stage it does nothing and returns false.
func (c *Controller) Advance(s *Session) bool {
	if s.Stage().Terminal() {
		return false
	}
	s.stageIndex++
	s.stageComplete = false

	next := s.Stage()
	s.append(RoleInterviewer, fmt.Sprintf("Moving to %s. %s", next, next.Prompt()), c.now())

	c.logger.Debug("stage advanced",
		zap.String("session", s.ID),
		zap.String("stage", next.String()))
	for _, o := range c.observers {
		o.StageAdvanced(s)
	}
	return true
}

// Finish scores the session and records one history entry. Every call
// records a new entry; callers must invoke it at most once per session.
func (c *Controller) Finish(ctx context.Context, s *Session, feedback string) (HistoryEntry, error) {
	breakdown := c.evaluate(ctx, s)

	entry := HistoryEntry{
		ID:        ulid.Make().String(),
		SessionID: s.ID,
		Time:      c.now(),
		Case:      s.Case.Company,
		Feedback:  feedback,
		Score:     breakdown.Weighted(),
		Breakdown: breakdown,
	}
	if err := c.rec.Record(ctx, entry); err != nil {
		return HistoryEntry{}, fmt.Errorf("recording session %s: %w", s.ID, err)
	}
	s.finishes++

	c.logger.Info("session finished",
		zap.String("session", s.ID),
		zap.Int("score", entry.Score))
	for _, o := range c.observers {
		o.SessionFinished(s, entry)
	}
	return entry, nil
}

func (c *Controller) evaluate(ctx context.Context, s *Session) Breakdown {
	ectx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	transcript := s.Messages()
	done := make(chan evaluateResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- evaluateResult{err: fmt.Errorf("%w: panic: %v", ErrEvaluatorUnavailable, r)}
			}
		}()
		b, err := c.gen.Evaluate(ectx, s.Case, transcript)
		done <- evaluateResult{breakdown: b, err: err}
	}()

	var err error
	select {
	case res := <-done:
		if res.err == nil {
			return res.breakdown.Clamp()
		}
		err = res.err
	case <-ectx.Done():
		err = fmt.Errorf("%w: %w", ErrEvaluatorUnavailable, ectx.Err())
	}

	reason := ReasonNoEvaluator
	if errors.Is(err, ErrMalformedEvaluation) {
		reason = ReasonMalformedEvaluation
	}
	c.logger.Warn("evaluator failed, using default breakdown",
		zap.String("session", s.ID),
		zap.String("reason", reason),
		zap.Error(err))
	for _, o := range c.observers {
		o.Fallback(s, reason, err)
	}
	return DefaultBreakdown
}
