package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/metrics"
	"github.com/consultprep-dev/consultprep/internal/session"
	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/testutil"
)

type testEnv struct {
	api   *Server
	srv   *httptest.Server
	gen   *testutil.Generator
	store *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := session.NewStore(filepath.Join(t.TempDir(), session.DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	lib, err := cases.Builtin()
	require.NoError(t, err)

	gen := &testutil.Generator{
		Reply:     "Walk me through it.",
		Breakdown: interview.Breakdown{Structure: 80, Analysis: 70, Communication: 90},
	}
	m := metrics.NewMetrics()
	ctrl := interview.NewController(gen, store,
		interview.WithCandidate("Tanvi"),
		interview.WithObserver(m.Observer()))

	s := New(Deps{
		Controller: ctrl,
		Library:    lib,
		Store:      store,
		Metrics:    m,
		Stats:      stats.Options{},
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{api: s, srv: srv, gen: gen, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) create(t *testing.T, caseID string) SessionView {
	t.Helper()
	var view SessionView
	status := e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{CaseID: caseID}, &view)
	require.Equal(t, http.StatusCreated, status)
	return view
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListCasesWithFilters(t *testing.T) {
	env := newTestEnv(t)

	var all []cases.Entry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/cases", nil, &all))
	assert.Len(t, all, 7)

	var beginner []cases.Entry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/cases?difficulty=Beginner&q=coffee", nil, &beginner))
	require.Len(t, beginner, 1)
	assert.Equal(t, "retail-chain-expansion", beginner[0].ID)

	var none []cases.Entry
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/cases?q=zebra", nil, &none))
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	view := env.create(t, "")
	assert.Equal(t, "AeroWidget Inc.", view.Case.Company)
	assert.Equal(t, "Introduction", view.Stage)
	assert.Len(t, view.Stages, 5)
	require.Len(t, view.Messages, 1)
	assert.Contains(t, view.Messages[0].Text, "Hello Tanvi.")
	assert.True(t, view.CanAdvance)

	var got SessionView
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/sessions/"+view.ID, nil, &got))
	assert.Equal(t, view.ID, got.ID)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{CaseID: "nope"}, &errResp))
	assert.Contains(t, errResp.Error, "nope")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/sessions/missing", nil, &errResp))
}

func TestSubmitAndAdvance(t *testing.T) {
	env := newTestEnv(t)
	view := env.create(t, "pharmaco-growth")

	var resp SubmitResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/messages", SubmitRequest{Text: "What is the market size?"}, &resp))
	assert.Equal(t, "Walk me through it.", resp.Reply.Text)
	assert.Equal(t, interview.RoleInterviewer, resp.Reply.Role)
	assert.Len(t, resp.Session.Messages, 3)
	assert.False(t, resp.Session.StageComplete)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/messages", SubmitRequest{Text: "I'm ready to move on"}, &resp))
	assert.Equal(t, interview.AdvanceReply, resp.Reply.Text)
	assert.True(t, resp.Session.StageComplete)

	var adv AdvanceResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/advance", nil, &adv))
	assert.True(t, adv.Advanced)
	assert.Equal(t, "Framework", adv.Session.Stage)
	assert.False(t, adv.Session.StageComplete)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/messages", SubmitRequest{Text: "   "}, &errResp))

	transcript, err := env.store.Transcript(t.Context(), view.ID)
	require.NoError(t, err)
	assert.Len(t, transcript, 6)
}

func TestAdvanceStopsAtConclusion(t *testing.T) {
	env := newTestEnv(t)
	view := env.create(t, "")

	var adv AdvanceResponse
	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/advance", nil, &adv))
		assert.True(t, adv.Advanced)
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/advance", nil, &adv))
	assert.False(t, adv.Advanced)
	assert.Equal(t, "Conclusion", adv.Session.Stage)
	assert.False(t, adv.Session.CanAdvance)
}

func TestFinishRecordsOnceAndFeedsStats(t *testing.T) {
	env := newTestEnv(t)
	view := env.create(t, "")

	var fin FinishResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/finish", nil, &fin))
	assert.Equal(t, 79, fin.Entry.Score)
	assert.Equal(t, DefaultFeedback, fin.Entry.Feedback)
	assert.Equal(t, "AeroWidget Inc.", fin.Entry.Case)
	assert.True(t, fin.Session.Finished)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusGone, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/finish", nil, &errResp))
	assert.Equal(t, http.StatusGone, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/messages", SubmitRequest{Text: "hello"}, &errResp))

	var agg stats.Aggregate
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/stats", nil, &agg))
	assert.Equal(t, 1, agg.Count)
	assert.Equal(t, 79, agg.Average)
	assert.Equal(t, []int{79}, agg.Trend)
	assert.Equal(t, 100, agg.XP)

	var hist HistoryResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/history?limit=5", nil, &hist))
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, fin.Entry.ID, hist.Entries[0].ID)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/history?limit=-1", nil, &errResp))
}

func TestFinishedSessionsAreReleased(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 20; i++ {
		view := env.create(t, "")
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/finish", nil, nil))
	}
	assert.Equal(t, 0, env.api.sessions.count())

	live := env.create(t, "")
	assert.Equal(t, 1, env.api.sessions.count())
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/sessions/"+live.ID, nil, nil))

	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/sessions/missing", nil, &errResp))
}

func TestIdleSessionsExpire(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := newRegistry(time.Hour)
	r.now = func() time.Time { return clock }

	lib, err := cases.Builtin()
	require.NoError(t, err)
	ctrl := interview.NewController(&testutil.Generator{}, &testutil.Recorder{})
	idle := ctrl.Start(lib.Default().Descriptor())
	active := ctrl.Start(lib.Default().Descriptor())
	r.put(idle)
	r.put(active)

	clock = clock.Add(40 * time.Minute)
	_, ok := r.get(active.ID)
	require.True(t, ok)

	clock = clock.Add(30 * time.Minute)
	r.put(ctrl.Start(lib.Default().Descriptor()))

	_, ok = r.get(idle.ID)
	assert.False(t, ok, "idle session should have expired")
	_, ok = r.get(active.ID)
	assert.True(t, ok, "recently used session should stay live")
	assert.Equal(t, 2, r.count())
}

func TestEmptyStats(t *testing.T) {
	env := newTestEnv(t)

	var agg stats.Aggregate
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/stats", nil, &agg))
	assert.Equal(t, 0, agg.Count)
	assert.Equal(t, 0, agg.Average)
	assert.NotNil(t, agg.Trend)
	assert.Empty(t, agg.Trend)
}

func TestGeneratorFailureStillReplies(t *testing.T) {
	env := newTestEnv(t)
	env.gen.GenerateErr = errors.New("upstream 500")
	view := env.create(t, "")

	var resp SubmitResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/messages", SubmitRequest{Text: "How are costs trending?"}, &resp))
	assert.Equal(t, interview.FallbackReply, resp.Reply.Text)
}

func TestConcurrentSubmitsAreSerialized(t *testing.T) {
	env := newTestEnv(t)
	view := env.create(t, "")

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/messages", SubmitRequest{Text: "Tell me about revenue"}, nil)
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	var got SessionView
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/sessions/"+view.ID, nil, &got))
	assert.Len(t, got.Messages, 1+2*len(codes))
}

func TestInvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.srv.URL+"/api/sessions", "application/json", strings.NewReader("{bad"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "")

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "consultprep_sessions_started_total")
	assert.Contains(t, buf.String(), "consultprep_http_requests_total")
}
