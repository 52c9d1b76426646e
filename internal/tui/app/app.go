// Package app provides the main TUI application that wires all views together.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/tui"
	"github.com/consultprep-dev/consultprep/internal/tui/views"
)

// FinishFeedback is recorded for sessions ended from the TUI.
const FinishFeedback = "Completed"

// recentSessions is how many history entries the dashboard lists.
const recentSessions = 5

// Store is the persistence the TUI needs. *session.Store satisfies it.
type Store interface {
	History(ctx context.Context, limit int) ([]interview.HistoryEntry, error)
	SaveTranscript(ctx context.Context, s *interview.Session) error
}

// Deps are the collaborators the TUI drives.
type Deps struct {
	Controller *interview.Controller
	Library    *cases.Library
	Store      Store
	Stats      stats.Options
	Logger     *zap.Logger
}

// App is the main TUI application that wires all views together.
type App struct {
	deps  Deps
	ctx   context.Context
	model *tui.Model

	// session is the live session; finished is set once it is recorded.
	session  *interview.Session
	finished bool

	pickerView    views.PickerModel
	interviewView views.InterviewModel
	dashboardView views.DashboardModel
}

// New creates a new App on the case picker.
func New(ctx context.Context, deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	model := tui.NewModel()
	return &App{
		deps:          deps,
		ctx:           ctx,
		model:         model,
		pickerView:    views.NewPickerModel(deps.Library, model.Width, model.Height),
		dashboardView: views.NewDashboardModel(model.Width, model.Height),
	}
}

// State returns the active screen.
func (a *App) State() tui.ViewState {
	return a.model.State
}

// Session returns the live session, if any.
func (a *App) Session() *interview.Session {
	return a.session
}

// Init loads the dashboard aggregate.
func (a *App) Init() tea.Cmd {
	return a.loadStats()
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 2}
		a.pickerView, _ = a.pickerView.Update(inner)
		a.dashboardView, _ = a.dashboardView.Update(inner)
		if a.session != nil {
			a.interviewView, _ = a.interviewView.Update(inner)
		}
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.CtrlC):
			if a.model.CtrlCPending {
				return a, tea.Quit
			}
			a.model.CtrlCPending = true
			a.model.Status = "Press ctrl+c again to exit"
			return a, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})

		case key.Matches(msg, tui.DefaultKeyMap.Tab):
			switch {
			case a.model.State == tui.StatePicker:
				a.model.State = tui.StateDashboard
				return a, a.loadStats()
			case a.model.State == tui.StateDashboard:
				a.model.State = tui.StatePicker
				return a, nil
			case a.model.State == tui.StateInterview && a.finished:
				a.model.State = tui.StateDashboard
				return a, a.loadStats()
			}
		}

	case tui.CtrlCResetMsg:
		a.model.CtrlCPending = false
		a.model.Status = ""
		return a, nil

	case tui.CaseSelectedMsg:
		return a, a.startCase(msg.Entry)

	case tui.BackMsg:
		a.model.State = tui.StatePicker
		return a, nil

	case tui.SubmitMsg:
		return a, a.submit(msg.Text)

	case tui.ReplyMsg:
		if msg.Err != nil {
			a.interviewView.SetError(msg.Err)
			return a, nil
		}
		a.interviewView.SetSnapshot(views.SnapshotOf(a.session))
		return a, nil

	case tui.AdvanceMsg:
		if a.session == nil || a.finished {
			return a, nil
		}
		if a.deps.Controller.Advance(a.session) {
			a.save(a.session)
			a.interviewView.SetSnapshot(views.SnapshotOf(a.session))
		}
		return a, nil

	case tui.FinishMsg:
		return a, a.finish()

	case tui.FinishedMsg:
		if msg.Err != nil {
			a.interviewView.SetError(msg.Err)
			return a, nil
		}
		a.finished = true
		a.interviewView.SetResult(msg.Entry)
		return a, a.loadStats()

	case tui.StatsLoadedMsg:
		if msg.Err != nil {
			a.deps.Logger.Warn("loading stats failed", zap.Error(msg.Err))
		}
		a.dashboardView, _ = a.dashboardView.Update(msg)
		return a, nil
	}

	return a.updateActive(msg)
}

func (a *App) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.model.State {
	case tui.StatePicker:
		a.pickerView, cmd = a.pickerView.Update(msg)
	case tui.StateInterview:
		a.interviewView, cmd = a.interviewView.Update(msg)
	case tui.StateDashboard:
		a.dashboardView, cmd = a.dashboardView.Update(msg)
	}
	return a, cmd
}

// startCase opens entry, keeping the live session when the same unfinished
// case is picked again.
func (a *App) startCase(entry cases.Entry) tea.Cmd {
	current := a.session
	if a.finished {
		current = nil
	}
	next := a.deps.Controller.Reset(current, entry.Descriptor())
	resumed := next == current
	if !resumed {
		a.session = next
		a.finished = false
		a.save(next)
	}

	a.interviewView = views.NewInterviewModel(views.SnapshotOf(a.session), a.model.Width, a.model.Height-2)
	a.model.State = tui.StateInterview
	return a.interviewView.Init()
}

func (a *App) submit(text string) tea.Cmd {
	sess := a.session
	if sess == nil || a.finished {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		reply, err := a.deps.Controller.Submit(ctx, sess, text)
		if err == nil {
			a.save(sess)
		}
		return tui.ReplyMsg{Reply: reply, Err: err}
	}
}

func (a *App) finish() tea.Cmd {
	sess := a.session
	if sess == nil || a.finished {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		a.save(sess)
		entry, err := a.deps.Controller.Finish(ctx, sess, FinishFeedback)
		return tui.FinishedMsg{Entry: entry, Err: err}
	}
}

func (a *App) loadStats() tea.Cmd {
	store, opts, ctx := a.deps.Store, a.deps.Stats, a.ctx
	return func() tea.Msg {
		entries, err := store.History(ctx, 0)
		if err != nil {
			return tui.StatsLoadedMsg{Err: err}
		}
		recent := entries
		if len(recent) > recentSessions {
			recent = recent[len(recent)-recentSessions:]
		}
		return tui.StatsLoadedMsg{Aggregate: stats.Compute(entries, opts), Recent: recent}
	}
}

// save persists the transcript. It is only called while no other turn can
// touch sess. Failures are logged; the live session stays authoritative.
func (a *App) save(sess *interview.Session) {
	if err := a.deps.Store.SaveTranscript(a.ctx, sess); err != nil {
		a.deps.Logger.Warn("saving transcript failed",
			zap.String("session", sess.ID),
			zap.Error(err))
	}
}

// View renders the active screen with tabs and a status bar.
func (a *App) View() string {
	var body string
	switch a.model.State {
	case tui.StatePicker:
		body = a.pickerView.View()
	case tui.StateInterview:
		body = a.interviewView.View()
	case tui.StateDashboard:
		body = a.dashboardView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.renderTabs(), body, a.renderStatus())
}

func (a *App) renderTabs() string {
	tab := func(label string, active bool) string {
		if active {
			return tui.TitleStyle.Render("[" + label + "]")
		}
		return tui.DimStyle.Render(" " + label + " ")
	}
	return tab("Cases", a.model.State != tui.StateDashboard) + " " + tab("Dashboard", a.model.State == tui.StateDashboard)
}

func (a *App) renderStatus() string {
	status := a.model.Status
	if status == "" {
		status = "ConsultPrep · " + a.model.State.String()
	}
	return tui.StatusBarStyle.Render(status)
}
