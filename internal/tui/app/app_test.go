package app

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/session"
	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/testutil"
	"github.com/consultprep-dev/consultprep/internal/tui"
)

type testEnv struct {
	app   *App
	lib   *cases.Library
	store *session.Store
	gen   *testutil.Generator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := session.NewStore(filepath.Join(t.TempDir(), session.DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	lib, err := cases.Builtin()
	require.NoError(t, err)

	gen := &testutil.Generator{
		Reply:     "What drives the decline?",
		Breakdown: interview.Breakdown{Structure: 80, Analysis: 70, Communication: 90},
	}
	ctrl := interview.NewController(gen, store, interview.WithCandidate("Tanvi"))

	a := New(context.Background(), Deps{
		Controller: ctrl,
		Library:    lib,
		Store:      store,
		Stats:      stats.Options{},
	})
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &testEnv{app: a, lib: lib, store: store, gen: gen}
}

// send delivers msg and returns the follow-up command.
func (e *testEnv) send(msg tea.Msg) tea.Cmd {
	_, cmd := e.app.Update(msg)
	return cmd
}

// deliver runs cmd synchronously and feeds its message back into the app.
func (e *testEnv) deliver(t *testing.T, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	return e.send(cmd())
}

func (e *testEnv) start(t *testing.T, id string) {
	t.Helper()
	entry, ok := e.lib.Get(id)
	require.True(t, ok)
	e.send(tui.CaseSelectedMsg{Entry: entry})
	require.Equal(t, tui.StateInterview, e.app.State())
}

func TestStartsOnPicker(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, tui.StatePicker, env.app.State())
	assert.Nil(t, env.app.Session())
	assert.Contains(t, env.app.View(), "Case Library")
}

func TestSelectCaseStartsInterview(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, "airline-mna")

	sess := env.app.Session()
	require.NotNil(t, sess)
	assert.Equal(t, "airline-mna", sess.Case.ID)

	transcript, err := env.store.Transcript(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Contains(t, transcript[0].Text, "Hello Tanvi.")
	assert.Contains(t, env.app.View(), "Introduction")
}

func TestSubmitDisablesInputUntilReply(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, cases.DefaultID)

	env.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Revenue is down, why?")})
	cmd := env.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, env.app.interviewView.Pending())
	assert.Contains(t, env.app.View(), "Interviewer is thinking")

	// A second enter while pending is ignored.
	assert.Nil(t, env.send(tea.KeyMsg{Type: tea.KeyEnter}))

	env.deliver(t, env.send(tui.SubmitMsg{Text: "Revenue is down, why?"}))
	assert.False(t, env.app.interviewView.Pending())

	msgs := env.app.Session().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "What drives the decline?", msgs[2].Text)
	assert.Len(t, env.app.interviewView.Snapshot().Messages, 3)

	transcript, err := env.store.Transcript(context.Background(), env.app.Session().ID)
	require.NoError(t, err)
	assert.Len(t, transcript, 3)
}

func TestEmptyInputIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, cases.DefaultID)

	assert.Nil(t, env.send(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.False(t, env.app.interviewView.Pending())
}

func TestAdvanceKeyword(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, cases.DefaultID)

	env.deliver(t, env.send(tui.SubmitMsg{Text: "Let's move on"}))
	assert.True(t, env.app.interviewView.Snapshot().StageComplete)
	assert.Contains(t, env.app.View(), "Stage complete")

	cmd := env.send(tea.KeyMsg{Type: tea.KeyCtrlN})
	env.deliver(t, cmd)
	assert.Equal(t, interview.StageFramework, env.app.Session().Stage())
	assert.False(t, env.app.interviewView.Snapshot().StageComplete)
}

func TestFinishRecordsAndRefreshesDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, cases.DefaultID)

	cmd := env.send(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	statsCmd := env.deliver(t, env.send(tui.FinishMsg{}))
	assert.True(t, env.app.interviewView.Finished())
	assert.Contains(t, env.app.View(), "Score 79")

	env.deliver(t, statsCmd)
	history, err := env.store.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 79, history[0].Score)

	env.send(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tui.StateDashboard, env.app.State())
	view := env.app.View()
	assert.Contains(t, view, "Cases Completed")
	assert.Contains(t, view, "AeroWidget Inc.")

	// Finishing again is not possible.
	assert.Nil(t, env.send(tui.FinishMsg{}))
}

func TestReselectingCaseKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, cases.DefaultID)
	first := env.app.Session()
	env.deliver(t, env.send(tui.SubmitMsg{Text: "What about costs?"}))

	env.send(tui.BackMsg{})
	assert.Equal(t, tui.StatePicker, env.app.State())
	env.start(t, cases.DefaultID)
	assert.Same(t, first, env.app.Session())
	assert.Len(t, env.app.interviewView.Snapshot().Messages, 3)

	env.start(t, "pharmaco-growth")
	assert.NotSame(t, first, env.app.Session())
}

func TestNewSessionAfterFinish(t *testing.T) {
	env := newTestEnv(t)
	env.start(t, cases.DefaultID)
	first := env.app.Session()
	env.deliver(t, env.send(tui.FinishMsg{}))

	env.start(t, cases.DefaultID)
	assert.NotSame(t, first, env.app.Session())
	assert.False(t, env.app.interviewView.Finished())
}

func TestTabAndCtrlC(t *testing.T) {
	env := newTestEnv(t)

	env.send(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tui.StateDashboard, env.app.State())
	assert.Contains(t, env.app.View(), "No sessions yet")
	env.send(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tui.StatePicker, env.app.State())

	assert.NotNil(t, env.send(tea.KeyMsg{Type: tea.KeyCtrlC}))
	assert.Contains(t, env.app.View(), "Press ctrl+c again")
	cmd := env.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	env.send(tui.CtrlCResetMsg{})
	assert.False(t, env.app.model.CtrlCPending)
}
