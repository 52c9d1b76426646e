package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "state", DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func historyEntry(i, score int) interview.HistoryEntry {
	return interview.HistoryEntry{
		ID:        fmt.Sprintf("01HX%022d", i),
		SessionID: fmt.Sprintf("session-%d", i),
		Time:      time.Date(2025, 3, 1, 10, i, 0, 0, time.UTC),
		Case:      "AeroWidget Inc.",
		Feedback:  "Completed",
		Score:     score,
		Breakdown: interview.Breakdown{Structure: score, Analysis: score, Communication: score},
	}
}

func TestRecordAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Record(ctx, historyEntry(i, 60+i)))
	}

	all, err := store.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{61, 62, 63}, []int{all[0].Score, all[1].Score, all[2].Score})
	assert.Equal(t, "session-1", all[0].SessionID)
	assert.Equal(t, interview.Breakdown{Structure: 61, Analysis: 61, Communication: 61}, all[0].Breakdown)
	assert.True(t, all[0].Time.Equal(historyEntry(1, 0).Time))

	recent, err := store.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 62, recent[0].Score, "limited history stays chronological")
	assert.Equal(t, 63, recent[1].Score)
}

func TestRecordDuplicateIDFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, historyEntry(1, 70)))
	assert.Error(t, store.Record(ctx, historyEntry(1, 80)))

	all, err := store.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHistoryFeedsAggregate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 11; i++ {
		require.NoError(t, store.Record(ctx, historyEntry(i, 50+i)))
	}

	entries, err := store.History(ctx, 0)
	require.NoError(t, err)
	agg := stats.Compute(entries, stats.Options{})

	assert.Equal(t, 11, agg.Count)
	assert.Equal(t, []int{52, 53, 54, 55, 56, 57, 58, 59, 60, 61}, agg.Trend)
}

func TestSaveTranscriptRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ctrl := interview.NewController(&testutil.Generator{Reply: "Tell me more."}, store)
	sess := ctrl.Start(testutil.AeroWidget())
	_, err := ctrl.Submit(ctx, sess, "What is the business model?")
	require.NoError(t, err)

	require.NoError(t, store.SaveTranscript(ctx, sess))

	got, err := store.Transcript(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, interview.RoleInterviewer, got[0].Role)
	assert.Equal(t, interview.RoleCandidate, got[1].Role)
	assert.Equal(t, "What is the business model?", got[1].Text)
	assert.Equal(t, "Tell me more.", got[2].Text)

	// Saving again replaces rather than duplicates.
	ctrl.Advance(sess)
	require.NoError(t, store.SaveTranscript(ctx, sess))
	got, err = store.Transcript(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	finished, err := store.Finished(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, finished)

	_, err = ctrl.Finish(ctx, sess, "Completed")
	require.NoError(t, err)

	finished, err = store.Finished(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, finished)

	summaries, err := store.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, sess.ID, summaries[0].ID)
	assert.Equal(t, "aerowidget", summaries[0].CaseID)
	assert.Equal(t, interview.StageFramework.String(), summaries[0].Stage)
	assert.Equal(t, 4, summaries[0].Messages)
	assert.True(t, summaries[0].Finished)
}

func TestTranscriptUnknownSession(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Transcript(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
