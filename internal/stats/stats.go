// Package stats keeps the history of finished practice sessions and derives
// the dashboard aggregates from it.
package stats

import (
	"context"
	"sync"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// Defaults for Compute.
const (
	DefaultMinutesPerCase = 30
	DefaultTrendWindow    = 10
	// XPPerCase is awarded for every finished session.
	XPPerCase = 100
)

// Skill labels shown on the dashboard.
const (
	SkillStructuring   = "Problem Structuring"
	SkillQuantitative  = "Quantitative Analysis"
	SkillCommunication = "Communication"
)

// Options tunes the aggregate formulas.
type Options struct {
	MinutesPerCase int
	TrendWindow    int
}

func (o Options) withDefaults() Options {
	if o.MinutesPerCase <= 0 {
		o.MinutesPerCase = DefaultMinutesPerCase
	}
	if o.TrendWindow <= 0 {
		o.TrendWindow = DefaultTrendWindow
	}
	return o
}

// Aggregate is derived from the full history on demand; it is never stored.
type Aggregate struct {
	Count          int                     `json:"count"`
	Average        int                     `json:"average"`
	Trend          []int                   `json:"trend"`
	HoursPracticed float64                 `json:"hours_practiced"`
	XP             int                     `json:"xp"`
	Skills         map[string]int          `json:"skills"`
	Last           *interview.HistoryEntry `json:"last,omitempty"`
}

// Compute derives the aggregate for entries, which must be in chronological
// order. The average is the truncated mean of every score.
func Compute(entries []interview.HistoryEntry, opts Options) Aggregate {
	opts = opts.withDefaults()

	agg := Aggregate{
		Count:  len(entries),
		Trend:  []int{},
		Skills: map[string]int{SkillStructuring: 0, SkillQuantitative: 0, SkillCommunication: 0},
	}
	if len(entries) == 0 {
		return agg
	}

	var total, structure, analysis, communication int
	for _, e := range entries {
		total += e.Score
		structure += e.Breakdown.Structure
		analysis += e.Breakdown.Analysis
		communication += e.Breakdown.Communication
	}
	n := len(entries)
	agg.Average = total / n
	agg.Skills[SkillStructuring] = structure / n
	agg.Skills[SkillQuantitative] = analysis / n
	agg.Skills[SkillCommunication] = communication / n

	start := 0
	if n > opts.TrendWindow {
		start = n - opts.TrendWindow
	}
	for _, e := range entries[start:] {
		agg.Trend = append(agg.Trend, e.Score)
	}

	agg.HoursPracticed = float64(n*opts.MinutesPerCase) / 60
	agg.XP = n * XPPerCase

	last := entries[n-1]
	agg.Last = &last
	return agg
}

// History is an in-memory, append-only list of finished sessions. It is
// safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []interview.HistoryEntry
	opts    Options
}

// NewHistory returns an empty History using default Options.
func NewHistory() *History {
	return &History{}
}

// NewHistoryWithOptions returns an empty History using opts for aggregates.
func NewHistoryWithOptions(opts Options) *History {
	return &History{opts: opts}
}

// Record appends entry. It never fails.
func (h *History) Record(_ context.Context, entry interview.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []interview.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]interview.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Aggregate computes the dashboard aggregate over the whole history.
func (h *History) Aggregate() Aggregate {
	return Compute(h.Entries(), h.opts)
}
