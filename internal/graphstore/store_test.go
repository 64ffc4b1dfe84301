package graphstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hoopgraph-backend/internal/domain"
	"hoopgraph-backend/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adjacencyURL = "mem://adjacency"
	namesURL     = "mem://names"
)

// memFetcher serves documents from a map and counts fetches per location.
type memFetcher struct {
	mu    sync.Mutex
	docs  map[string][]byte
	errs  map[string]error
	calls map[string]int
	gate  chan struct{}
}

func newMemFetcher(adjacency, names string) *memFetcher {
	return &memFetcher{
		docs: map[string][]byte{
			adjacencyURL: []byte(adjacency),
			namesURL:     []byte(names),
		},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *memFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	f.calls[location]++
	gate := f.gate
	data, err := f.docs[location], f.errs[location]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return data, err
}

func (f *memFetcher) setErr(location string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[location] = err
}

func (f *memFetcher) setDoc(location, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[location] = []byte(doc)
}

func (f *memFetcher) count(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

const (
	scenarioAdjacency = `{"1":[2,3],"2":[1,4],"3":[1],"4":[2,5],"5":[4]}`
	scenarioNames     = `{"1":"Player One","2":"Player Two","3":"Player Three","4":"Player Four","5":"Player Five"}`
)

func newTestStore(f Fetcher, opts Options) *Store {
	opts.AdjacencyURL = adjacencyURL
	opts.NamesURL = namesURL
	return NewStore(f, opts, zap.NewNop(), nil)
}

func TestStoreLoadsOnceAndCaches(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	store := newTestStore(fetcher, Options{})

	assert.Equal(t, StateEmpty, store.State())

	g1, err := store.Load(context.Background())
	require.NoError(t, err)
	g2, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, g1, g2)
	assert.Equal(t, StateLoaded, store.State())
	assert.False(t, store.LoadedAt().IsZero())
	assert.Equal(t, 1, fetcher.count(adjacencyURL))
	assert.Equal(t, 1, fetcher.count(namesURL))
	assert.Equal(t, []domain.PlayerID{2, 3}, g1.Neighbors(1))
	assert.Equal(t, "Player Four", g1.Player(4).Name)
}

func TestStoreConcurrentFirstLoadSharesOneFetch(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	fetcher.gate = make(chan struct{})
	store := newTestStore(fetcher, Options{})

	const callers = 16
	var wg sync.WaitGroup
	graphs := make([]*domain.Graph, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i], errs[i] = store.Load(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return store.State() == StateLoading }, time.Second, time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, graphs[0], graphs[i])
	}
	assert.Equal(t, 1, fetcher.count(adjacencyURL))
	assert.Equal(t, 1, fetcher.count(namesURL))
}

func TestStoreFailureResetsAndRetries(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	fetcher.setErr(namesURL, errors.New("bucket offline"))
	metrics := observability.NewCollector("test")
	store := NewStore(fetcher, Options{AdjacencyURL: adjacencyURL, NamesURL: namesURL}, zap.NewNop(), metrics)

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGraphUnavailable)
	assert.ErrorContains(t, err, "bucket offline")
	assert.Equal(t, StateEmpty, store.State())
	_, ok := store.Snapshot()
	assert.False(t, ok, "no partial snapshot is kept")

	fetcher.setErr(namesURL, nil)
	g, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, g.Names, 5)
	assert.Equal(t, 2, fetcher.count(namesURL))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GraphLoads.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GraphLoads.WithLabelValues("success")))
}

func TestStoreRejectsMalformedDocuments(t *testing.T) {
	for _, doc := range []string{`null`, `[]`, `7`, `"adjacency"`} {
		t.Run(doc, func(t *testing.T) {
			fetcher := newMemFetcher(doc, scenarioNames)
			store := newTestStore(fetcher, Options{})

			_, err := store.Load(context.Background())
			assert.ErrorIs(t, err, ErrGraphUnavailable)
			assert.Equal(t, StateEmpty, store.State())
		})
	}

	fetcher := newMemFetcher(scenarioAdjacency, `null`)
	store := newTestStore(fetcher, Options{})
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrGraphUnavailable)

	fetcher.setDoc(namesURL, scenarioNames)
	_, err = store.Load(context.Background())
	assert.NoError(t, err)
}

func TestStoreCancelledCallerDoesNotPoisonOthers(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	fetcher.gate = make(chan struct{})
	store := newTestStore(fetcher, Options{LoadTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return store.State() == StateLoading }, time.Second, time.Millisecond)

	secondDone := make(chan *domain.Graph, 1)
	go func() {
		g, err := store.Load(context.Background())
		if err == nil {
			secondDone <- g
		}
		close(secondDone)
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(fetcher.gate)
	g, ok := <-secondDone
	require.True(t, ok)
	require.NotNil(t, g)
	assert.Equal(t, StateLoaded, store.State())
	assert.Equal(t, 1, fetcher.count(adjacencyURL))
}

func TestStoreLoadTimeout(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	fetcher.gate = make(chan struct{})
	defer close(fetcher.gate)
	store := newTestStore(fetcher, Options{LoadTimeout: 20 * time.Millisecond})

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrGraphUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateEmpty, store.State())
}

func TestStoreNormalisation(t *testing.T) {
	fetcher := newMemFetcher(`{"1":[3,2],"2":[],"3":[1]}`, `{"1":"A","2":"B","3":"C"}`)
	store := newTestStore(fetcher, Options{Symmetrize: true, SortNeighbors: true})

	g, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerID{2, 3}, g.Neighbors(1))
	assert.Equal(t, []domain.PlayerID{1}, g.Neighbors(2))
}

func TestStorePreload(t *testing.T) {
	fetcher := newMemFetcher(scenarioAdjacency, scenarioNames)
	store := newTestStore(fetcher, Options{})

	require.NoError(t, store.Preload(context.Background()))
	_, ok := store.Snapshot()
	assert.True(t, ok)
}
