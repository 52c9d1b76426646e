// Package session provides SQLite-backed persistence for practice sessions
// and the history of finished ones.
package session

import "time"

// Summary is a stored session as listed by `consultprep history --sessions`.
type Summary struct {
	ID        string
	CaseID    string
	Company   string
	Stage     string
	Messages  int
	StartedAt time.Time
	UpdatedAt time.Time
	Finished  bool
}
