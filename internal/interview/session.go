package interview

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Session is one attempt at a single case. It is owned by exactly one
// caller; only the controller mutates it.
type Session struct {
	ID        string
	Case      Case
	StartTime time.Time

	stageIndex    int
	messages      []Message
	stageComplete bool
	finishes      int

	// pending is set while a candidate turn waits on the generator.
	pending atomic.Bool
}

// Stage returns the current stage. An index outside the stage table means
// the session was corrupted by a programming error.
func (s *Session) Stage() Stage {
	if s.stageIndex < 0 || s.stageIndex >= len(Stages) {
		panic(fmt.Sprintf("interview: stage index %d out of range [0,%d)", s.stageIndex, len(Stages)))
	}
	return Stages[s.stageIndex]
}

// StageIndex returns the 0-based position of the current stage.
func (s *Session) StageIndex() int {
	return s.stageIndex
}

// StageComplete reports whether the candidate has signalled readiness to
// move on from the current stage.
func (s *Session) StageComplete() bool {
	return s.stageComplete
}

// Pending reports whether a candidate turn is waiting on the generator.
func (s *Session) Pending() bool {
	return s.pending.Load()
}

// Finished reports whether the session has been recorded at least once.
func (s *Session) Finished() bool {
	return s.finishes > 0
}

// Finishes returns how many times the session has been recorded.
func (s *Session) Finishes() int {
	return s.finishes
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

func (s *Session) append(role Role, text string, at time.Time) Message {
	msg := Message{Role: role, Text: text, Time: at}
	s.messages = append(s.messages, msg)
	return msg
}
