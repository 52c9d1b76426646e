package interview

import (
	"context"
	"errors"
	"math"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Message is one entry in a session's transcript.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Case describes the business problem an interview is built around. It is
// supplied by whatever surface the candidate used to pick a case.
type Case struct {
	ID       string   `json:"id"`
	Company  string   `json:"company"`
	Industry string   `json:"industry"`
	Problem  string   `json:"problem"`
	Goal     string   `json:"goal"`
	Facts    []string `json:"facts,omitempty"`
}

// Identity returns the value that decides whether two descriptors refer to
// the same case. Descriptors without an ID are keyed by company name.
func (c Case) Identity() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Company
}

// Breakdown is the per-dimension score produced when a session finishes.
// Every field is in [0,100].
type Breakdown struct {
	Structure     int `json:"structure"`
	Analysis      int `json:"analysis"`
	Communication int `json:"communication"`
}

// DefaultBreakdown is used whenever no evaluator result is available.
var DefaultBreakdown = Breakdown{Structure: 50, Analysis: 50, Communication: 50}

// Score weights.
const (
	structureWeight     = 0.3
	analysisWeight      = 0.4
	communicationWeight = 0.3
)

// Weighted returns round(0.3*structure + 0.4*analysis + 0.3*communication).
func (b Breakdown) Weighted() int {
	sum := structureWeight*float64(b.Structure) +
		analysisWeight*float64(b.Analysis) +
		communicationWeight*float64(b.Communication)
	return int(math.Round(sum))
}

// Clamp returns b with every dimension limited to [0,100].
func (b Breakdown) Clamp() Breakdown {
	return Breakdown{
		Structure:     clampScore(b.Structure),
		Analysis:      clampScore(b.Analysis),
		Communication: clampScore(b.Communication),
	}
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// HistoryEntry is the immutable record of one finished session.
type HistoryEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	Case      string    `json:"case"`
	Feedback  string    `json:"feedback"`
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Request is everything a Generator sees for one candidate turn.
type Request struct {
	Case  Case
	Stage Stage
	Text  string
	// History is the transcript before Text, oldest first.
	History []Message
}

// Generator produces interviewer utterances and end-of-session evaluations.
// Implementations return an error on any failure; the controller owns the
// fallback policy.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Evaluate(ctx context.Context, c Case, transcript []Message) (Breakdown, error)
}

// Recorder receives finished sessions.
type Recorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}

var (
	// ErrGeneratorUnavailable covers network, auth and provider failures.
	ErrGeneratorUnavailable = errors.New("interview: response generator unavailable")
	// ErrRateLimited marks quota or rate-limit rejections from a provider.
	ErrRateLimited = errors.New("interview: response generator rate limited")
	// ErrEvaluatorUnavailable is returned by generators that cannot score.
	ErrEvaluatorUnavailable = errors.New("interview: evaluator unavailable")
	// ErrMalformedEvaluation means the evaluator output had the wrong shape.
	ErrMalformedEvaluation = errors.New("interview: malformed evaluator output")

	ErrEmptyMessage = errors.New("interview: empty candidate message")
	ErrTurnPending  = errors.New("interview: a candidate turn is already in flight")

	// ErrSessionFinished rejects turns on a session that has been recorded.
	ErrSessionFinished = errors.New("interview: session already finished")
)
