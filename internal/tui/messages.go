package tui

import (
	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/stats"
)

// CaseSelectedMsg is sent when a case is picked from the library.
type CaseSelectedMsg struct {
	Entry cases.Entry
}

// SubmitMsg carries a candidate message typed in the interview view.
type SubmitMsg struct {
	Text string
}

// ReplyMsg carries the interviewer's reply once a submitted turn completes.
type ReplyMsg struct {
	Reply interview.Message
	Err   error
}

// AdvanceMsg requests the next stage.
type AdvanceMsg struct{}

// FinishMsg requests ending and saving the session.
type FinishMsg struct{}

// FinishedMsg reports a recorded session.
type FinishedMsg struct {
	Entry interview.HistoryEntry
	Err   error
}

// StatsLoadedMsg carries a fresh dashboard aggregate.
type StatsLoadedMsg struct {
	Aggregate stats.Aggregate
	Recent    []interview.HistoryEntry
	Err       error
}

// BackMsg returns to the case picker.
type BackMsg struct{}

// CtrlCResetMsg clears the pending ctrl+c confirmation.
type CtrlCResetMsg struct{}
