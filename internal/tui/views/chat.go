package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/tui"
)

// Snapshot is a copy of the session state the interview view renders. The
// view never touches a live session, which may be mutated by a pending turn.
type Snapshot struct {
	Case          interview.Case
	StageIndex    int
	StageComplete bool
	Messages      []interview.Message
	StartTime     time.Time
}

// SnapshotOf copies s. It must not be called while a turn is pending.
func SnapshotOf(s *interview.Session) Snapshot {
	return Snapshot{
		Case:          s.Case,
		StageIndex:    s.StageIndex(),
		StageComplete: s.StageComplete(),
		Messages:      s.Messages(),
		StartTime:     s.StartTime,
	}
}

// Stage returns the snapshot's current stage.
func (s Snapshot) Stage() interview.Stage {
	return interview.Stages[s.StageIndex]
}

type timerTickMsg time.Time

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return timerTickMsg(t) })
}

// InterviewModel is the chat screen for one session.
type InterviewModel struct {
	snap     Snapshot
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	pending  bool
	result   *interview.HistoryEntry
	errMsg   string
	width    int
	height   int
	now      func() time.Time
}

// NewInterviewModel creates the chat screen for snap.
func NewInterviewModel(snap Snapshot, width, height int) InterviewModel {
	ta := textarea.New()
	ta.Placeholder = "Type your response... (ctrl+n: next stage, ctrl+e: end & save)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	m := InterviewModel{
		snap:     snap,
		viewport: viewport.New(width, 10),
		textarea: ta,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		now:      time.Now,
	}
	m.resize(width, height)
	return m
}

// Pending reports whether a submitted turn is awaiting its reply.
func (m InterviewModel) Pending() bool {
	return m.pending
}

// Finished reports whether the session has been saved.
func (m InterviewModel) Finished() bool {
	return m.result != nil
}

// Snapshot returns the state being rendered.
func (m InterviewModel) Snapshot() Snapshot {
	return m.snap
}

// SetSnapshot replaces the rendered state and clears the pending flag.
func (m *InterviewModel) SetSnapshot(s Snapshot) {
	m.snap = s
	m.pending = false
	m.refresh()
}

// SetResult marks the session as saved.
func (m *InterviewModel) SetResult(e interview.HistoryEntry) {
	m.result = &e
	m.pending = false
	m.textarea.Blur()
}

// SetError shows err under the transcript and re-enables input.
func (m *InterviewModel) SetError(err error) {
	m.errMsg = err.Error()
	m.pending = false
}

func (m *InterviewModel) resize(width, height int) {
	m.width, m.height = width, height
	w := width - 8
	if w < 20 {
		w = 20
	}
	h := height - 16
	if h < 5 {
		h = 5
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.textarea.SetWidth(w)
	m.refresh()
}

func (m *InterviewModel) refresh() {
	m.viewport.SetContent(formatMessages(m.snap.Messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

// Init starts the cursor blink and the timer.
func (m InterviewModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, timerTick())
}

// Update handles chat input.
func (m InterviewModel) Update(msg tea.Msg) (InterviewModel, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case timerTickMsg:
		if m.result != nil {
			return m, nil
		}
		return m, timerTick()

	case spinner.TickMsg:
		if m.pending {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.Enter):
			if m.pending || m.result != nil {
				return m, nil
			}
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.errMsg = ""
			m.pending = true
			m.snap.Messages = append(m.snap.Messages, interview.Message{
				Role: interview.RoleCandidate,
				Text: text,
				Time: m.now(),
			})
			m.refresh()
			return m, tea.Batch(
				func() tea.Msg { return tui.SubmitMsg{Text: text} },
				m.spinner.Tick,
			)

		case key.Matches(msg, tui.DefaultKeyMap.NextStage):
			if m.pending || m.result != nil || m.snap.Stage().Terminal() {
				return m, nil
			}
			return m, func() tea.Msg { return tui.AdvanceMsg{} }

		case key.Matches(msg, tui.DefaultKeyMap.EndCase):
			if m.pending || m.result != nil {
				return m, nil
			}
			m.pending = true
			return m, tea.Batch(
				func() tea.Msg { return tui.FinishMsg{} },
				m.spinner.Tick,
			)

		case key.Matches(msg, tui.DefaultKeyMap.Escape):
			if m.pending {
				return m, nil
			}
			return m, func() tea.Msg { return tui.BackMsg{} }
		}
	}

	if !m.pending && m.result == nil {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the chat screen.
func (m InterviewModel) View() string {
	var b strings.Builder

	elapsed := m.now().Sub(m.snap.StartTime).Truncate(time.Second)
	header := tui.TitleStyle.Render(m.snap.Case.Company)
	b.WriteString(header)
	b.WriteString(tui.DimStyle.Render(fmt.Sprintf("  %s", formatClock(elapsed))))
	b.WriteString("\n")
	b.WriteString(stageProgress(m.snap.StageIndex))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	switch {
	case m.result != nil:
		b.WriteString(tui.SuccessStyle.Render(fmt.Sprintf(
			"Session saved. Score %d (structure %d, analysis %d, communication %d).",
			m.result.Score, m.result.Breakdown.Structure, m.result.Breakdown.Analysis, m.result.Breakdown.Communication)))
		b.WriteString("\n")
		b.WriteString(tui.DimStyle.Render("esc: back to cases · tab: dashboard"))
		return tui.BoxStyle.Width(m.width - 4).Render(b.String())
	case m.snap.StageComplete && !m.snap.Stage().Terminal():
		next := interview.Stages[m.snap.StageIndex+1]
		b.WriteString(tui.BannerStyle.Render(fmt.Sprintf("Stage complete. Press ctrl+n to move to %s.", next)))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(tui.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	if m.pending {
		b.WriteString(fmt.Sprintf("%s Interviewer is thinking...", m.spinner.View()))
		b.WriteString("\n")
		b.WriteString(tui.DimStyle.Render(m.textarea.View()))
	} else {
		b.WriteString(m.textarea.View())
	}
	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render("enter: send · ctrl+n: next stage · ctrl+e: end & save · esc: back"))

	return tui.BoxStyle.Width(m.width - 4).Render(b.String())
}

// stageProgress renders the stage stepper.
func stageProgress(current int) string {
	parts := make([]string, len(interview.Stages))
	for i, st := range interview.Stages {
		switch {
		case i < current:
			parts[i] = tui.StageDone + " " + tui.DimStyle.Render(st.String())
		case i == current:
			parts[i] = tui.StageCurrent + " " + tui.TitleStyle.Render(st.String())
		default:
			parts[i] = tui.StagePending + " " + tui.DimStyle.Render(st.String())
		}
	}
	return strings.Join(parts, tui.DimStyle.Render(" ─ "))
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// formatMessages renders the transcript for the viewport.
func formatMessages(messages []interview.Message, width int) string {
	if len(messages) == 0 {
		return tui.DimStyle.Render("No messages yet.")
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := tui.InterviewerStyle.Render("Interviewer")
		if msg.Role == interview.RoleCandidate {
			label = tui.CandidateStyle.Render("You")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wrap.Render(msg.Text))
	}
	return b.String()
}
