package views

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/testutil"
	"github.com/consultprep-dev/consultprep/internal/tui"
)

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁█", Sparkline([]int{0, 100}))
	assert.Equal(t, "▁▄█", Sparkline([]int{-5, 50, 150}))
	assert.Equal(t, "", Sparkline(nil))
}

func TestBar(t *testing.T) {
	b := bar(50, 10)
	assert.Equal(t, 5, strings.Count(b, "█"))
	assert.Equal(t, 5, strings.Count(b, "░"))
}

func TestPickerFacets(t *testing.T) {
	lib, err := cases.Builtin()
	require.NoError(t, err)
	m := NewPickerModel(lib, 80, 30)
	assert.Len(t, m.Visible(), 7)

	// First ctrl+f moves from All to the first difficulty in library order.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	want := lib.Values("difficulty")[0]
	assert.Equal(t, want, m.Filter().Difficulty)
	for _, e := range m.Visible() {
		assert.Equal(t, want, e.Difficulty)
	}

	// Cycling past the last value returns to All.
	for range lib.Values("difficulty") {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	}
	assert.Equal(t, cases.All, m.Filter().Difficulty)
	assert.Len(t, m.Visible(), 7)
}

func TestPickerEnterSelects(t *testing.T) {
	lib, err := cases.Builtin()
	require.NoError(t, err)
	m := NewPickerModel(lib, 80, 30)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(tui.CaseSelectedMsg)
	require.True(t, ok)
	assert.Equal(t, lib.All()[0].ID, msg.Entry.ID)
}

func snapshotAt(stage int) Snapshot {
	return Snapshot{
		Case:       testutil.AeroWidget(),
		StageIndex: stage,
		Messages:   []interview.Message{{Role: interview.RoleInterviewer, Text: "Hello."}},
		StartTime:  time.Now(),
	}
}

func TestInterviewNextStageDisabledAtConclusion(t *testing.T) {
	m := NewInterviewModel(snapshotAt(len(interview.Stages)-1), 80, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Nil(t, cmd)

	m = NewInterviewModel(snapshotAt(0), 80, 30)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.NotNil(t, cmd)
	assert.IsType(t, tui.AdvanceMsg{}, cmd())
}

func TestInterviewErrorReenablesInput(t *testing.T) {
	m := NewInterviewModel(snapshotAt(0), 80, 30)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Pending())
	assert.Len(t, m.Snapshot().Messages, 2)

	m.SetError(errors.New("turn already pending"))
	assert.False(t, m.Pending())
	assert.Contains(t, m.View(), "turn already pending")
}

func TestStageProgress(t *testing.T) {
	out := stageProgress(2)
	for _, st := range interview.Stages {
		assert.Contains(t, out, st.String())
	}
	assert.Equal(t, 2, strings.Count(out, "✓"))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", formatClock(-time.Second))
	assert.Equal(t, "25:07", formatClock(25*time.Minute+7*time.Second))
}

func TestDashboardRendersAggregate(t *testing.T) {
	entries := []interview.HistoryEntry{
		{Case: "AeroWidget Inc.", Score: 60, Feedback: "Completed", Time: time.Now(),
			Breakdown: interview.Breakdown{Structure: 60, Analysis: 60, Communication: 60}},
		{Case: "PharmaCo", Score: 90, Feedback: "Completed", Time: time.Now(),
			Breakdown: interview.Breakdown{Structure: 90, Analysis: 90, Communication: 90}},
	}
	m := NewDashboardModel(100, 40)
	m, _ = m.Update(tui.StatsLoadedMsg{Aggregate: stats.Compute(entries, stats.Options{}), Recent: entries})

	view := m.View()
	assert.Contains(t, view, "75")
	assert.Contains(t, view, "PharmaCo")
	assert.Contains(t, view, Sparkline([]int{60, 90}))

	m, _ = m.Update(tui.StatsLoadedMsg{Err: errors.New("database is locked")})
	assert.Contains(t, m.View(), "database is locked")
}
