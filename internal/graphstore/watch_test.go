package graphstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hoopgraph-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalPath(t *testing.T) {
	path, ok := LocalPath("file:///srv/data/adjacency.json")
	assert.True(t, ok)
	assert.Equal(t, "/srv/data/adjacency.json", path)

	path, ok = LocalPath("data/../data/names.json")
	assert.True(t, ok)
	assert.Equal(t, "data/names.json", path)

	_, ok = LocalPath("gs://bucket/adjacency.json")
	assert.False(t, ok)
}

func TestNewWatcherNeedsLocalSource(t *testing.T) {
	store := newTestStore(newMemFetcher(scenarioAdjacency, scenarioNames), Options{})
	_, err := NewWatcher(store, []string{"https://example.com/a.json", "supabase://nba/b.json"}, time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrNothingToWatch)
}

func TestWatcherReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	adjacency := filepath.Join(dir, "adjacency.json")
	names := filepath.Join(dir, "names.json")
	require.NoError(t, os.WriteFile(adjacency, []byte(`{"1":[2],"2":[1]}`), 0o600))
	require.NoError(t, os.WriteFile(names, []byte(`{"1":"A","2":"B"}`), 0o600))

	store := NewStore(FileFetcher{}, Options{AdjacencyURL: adjacency, NamesURL: "file://" + names}, zap.NewNop(), nil)
	g, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerID{2}, g.Neighbors(1))

	w, err := NewWatcher(store, []string{adjacency, "file://" + names}, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(adjacency, []byte(`{"1":[2,3],"2":[1],"3":[1]}`), 0o600))

	assert.Eventually(t, func() bool {
		g, ok := store.Snapshot()
		return ok && len(g.Neighbors(1)) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStoreInvalidateForcesRefetch(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	store := newTestStore(fetcher, Options{})

	_, err := store.Load(context.Background())
	require.NoError(t, err)

	store.Invalidate()
	assert.Equal(t, StateEmpty, store.State())
	assert.True(t, store.LoadedAt().IsZero())

	fetcher.setDoc(adjacencyURL, `{"1":[5],"5":[1]}`)
	g, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerID{5}, g.Neighbors(1))
	assert.Equal(t, 2, fetcher.count(adjacencyURL))
}

func TestStoreInvalidateDuringLoadDiscardsStaleResult(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	fetcher.gate = make(chan struct{})
	store := newTestStore(fetcher, Options{})

	loaded := make(chan error, 1)
	go func() {
		_, err := store.Load(context.Background())
		loaded <- err
	}()

	require.Eventually(t, func() bool { return store.State() == StateLoading }, time.Second, time.Millisecond)
	store.Invalidate()
	close(fetcher.gate)

	require.NoError(t, <-loaded)
	_, ok := store.Snapshot()
	assert.False(t, ok, "a load started before Invalidate must not be cached")
}
