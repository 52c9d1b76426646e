// Package log provides structured event logging.
// This file appends practice events to log.jsonl.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// Event type constants.
const (
	EventSessionStarted    = "session_started"
	EventStageAdvanced     = "stage_advanced"
	EventGeneratorFallback = "generator_fallback"
	EventSessionFinished   = "session_finished"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time      time.Time      `json:"time"`
	Event     string         `json:"event"`
	SessionID string         `json:"session,omitempty"`
	Case      string         `json:"case,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
	Score     int            `json:"score,omitempty"`
	Breakdown map[string]int `json:"breakdown,omitempty"`
	Messages  int            `json:"messages,omitempty"`
	ElapsedMs int64          `json:"elapsed_ms,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to log.jsonl inside stateDir.
// Creates stateDir if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(stateDir string) (*Logger, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &Logger{
		path: filepath.Join(stateDir, "log.jsonl"),
	}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Append writes a single LogEvent as one JSON line to the log file.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// Thread-safe via mutex.
func (l *Logger) Append(event LogEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}

	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

// Journal records session lifecycle events to a Logger. It implements
// interview.Observer. Write failures are logged to diag and otherwise
// ignored.
type Journal struct {
	log  *Logger
	diag *zap.Logger
}

var _ interview.Observer = (*Journal)(nil)

// NewJournal wraps l. diag may be nil.
func NewJournal(l *Logger, diag *zap.Logger) *Journal {
	if diag == nil {
		diag = zap.NewNop()
	}
	return &Journal{log: l, diag: diag}
}

func (j *Journal) append(e LogEvent) {
	if err := j.log.Append(e); err != nil {
		j.diag.Warn("journal write failed", zap.String("event", e.Event), zap.Error(err))
	}
}

// SessionStarted implements interview.Observer.
func (j *Journal) SessionStarted(s *interview.Session) {
	j.append(LogEvent{
		Event:     EventSessionStarted,
		SessionID: s.ID,
		Case:      s.Case.Identity(),
		Stage:     s.Stage().String(),
	})
}

// StageAdvanced implements interview.Observer.
func (j *Journal) StageAdvanced(s *interview.Session) {
	j.append(LogEvent{
		Event:     EventStageAdvanced,
		SessionID: s.ID,
		Case:      s.Case.Identity(),
		Stage:     s.Stage().String(),
	})
}

// Fallback implements interview.Observer.
func (j *Journal) Fallback(s *interview.Session, reason string, err error) {
	e := LogEvent{
		Event:     EventGeneratorFallback,
		SessionID: s.ID,
		Case:      s.Case.Identity(),
		Stage:     s.Stage().String(),
		Reason:    reason,
	}
	if err != nil {
		e.Error = err.Error()
	}
	j.append(e)
}

// SessionFinished implements interview.Observer.
func (j *Journal) SessionFinished(s *interview.Session, entry interview.HistoryEntry) {
	j.append(LogEvent{
		Time:      entry.Time.UTC(),
		Event:     EventSessionFinished,
		SessionID: s.ID,
		Case:      s.Case.Identity(),
		Stage:     s.Stage().String(),
		Score:     entry.Score,
		Breakdown: map[string]int{
			"structure":     entry.Breakdown.Structure,
			"analysis":      entry.Breakdown.Analysis,
			"communication": entry.Breakdown.Communication,
		},
		Messages:  len(s.Messages()),
		ElapsedMs: entry.Time.Sub(s.StartTime).Milliseconds(),
	})
}
