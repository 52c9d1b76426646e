package tui

// ViewState represents the current screen of the TUI.
type ViewState int

const (
	StatePicker ViewState = iota // Choosing a case
	StateInterview
	StateDashboard
)

func (s ViewState) String() string {
	switch s {
	case StatePicker:
		return "cases"
	case StateInterview:
		return "interview"
	case StateDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// Model holds state shared by every screen.
type Model struct {
	State  ViewState
	Width  int
	Height int

	// CtrlCPending is set after the first ctrl+c; a second press exits.
	CtrlCPending bool

	// Status is a one-line notice shown in the status bar.
	Status string
}

// NewModel creates the shared model on the case picker.
func NewModel() *Model {
	return &Model{State: StatePicker, Width: 80, Height: 24}
}
