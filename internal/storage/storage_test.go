package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDownloadCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)

	url := "https://example.org/GRF_F_V_PRO_left.csv"
	body := []byte("SUBJECT_ID,SESSION_ID,TRIAL_ID\n1,1,1\n")

	_, ok, err := store.GetDownload(url)
	require.NoError(t, err)
	assert.False(t, ok, "unfetched URL should miss the cache")

	require.NoError(t, store.PutDownload(url, body))

	got, ok, err := store.GetDownload(url)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, body, got)
}

func TestRecentRunsOrder(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := Run{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Payload:   json.RawMessage(`{"ok":true}`),
		}
		require.NoError(t, store.PutRun(run))
	}

	runs, err := store.RecentRuns(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Most recent first.
	assert.Equal(t, "e", runs[0].ID)
	assert.Equal(t, "d", runs[1].ID)
	assert.Equal(t, "c", runs[2].ID)
}

func TestRecentRunsEmpty(t *testing.T) {
	store := newTestStore(t)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
