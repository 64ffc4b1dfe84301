package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hoopgraph-backend/internal/domain"
	"hoopgraph-backend/internal/metadata"
	"hoopgraph-backend/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticGraph struct {
	graph *domain.Graph
	err   error
	loads atomic.Int32
}

func (s *staticGraph) Load(context.Context) (*domain.Graph, error) {
	s.loads.Add(1)
	return s.graph, s.err
}

func scenarioGraph() *domain.Graph {
	return &domain.Graph{
		Adjacency: scenarioAdjacency(),
		Names: domain.Names{
			1: "LeBron James",
			2: "Kyrie Irving",
			3: "Dwyane Wade",
			4: "Kevin Durant",
			5: "Russell Westbrook",
		},
	}
}

func intPtr(v int) *int { return &v }

func scenarioMetadata() *metadata.MemoryStore {
	return metadata.NewMemoryStore([]domain.PairRecord{
		{PlayerIDLow: 1, PlayerIDHigh: 2, SharedTeams: "CLE (2014-2017)", SharedGamesRecord: "Together: 169-77", StartYearTogether: intPtr(2014)},
		{PlayerIDLow: 2, PlayerIDHigh: 4, SharedTeams: "BKN (2020-2022)", SharedGamesRecord: "Together: 40-20"},
		{PlayerIDLow: 4, PlayerIDHigh: 5, SharedTeams: "OKC (2008-2016)", SharedGamesRecord: "Together: 390-200", StartYearTogether: intPtr(2008)},
	})
}

func newTestFinder(graphs GraphLoader, lookup metadata.Lookup) *Finder {
	return NewFinder(graphs, lookup, Options{LookupTimeout: time.Second}, zap.NewNop(), nil)
}

func pathIDs(players []domain.Player) []domain.PlayerID {
	ids := make([]domain.PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

func TestFindScenario(t *testing.T) {
	f := newTestFinder(&staticGraph{graph: scenarioGraph()}, scenarioMetadata())

	tests := []struct {
		name       string
		start, end string
		outcome    Outcome
		path       []domain.PlayerID
		degrees    int
	}{
		{"three degrees", "1", "5", OutcomeFound, []domain.PlayerID{1, 2, 4, 5}, 3},
		{"teammates", "1", "3", OutcomeFound, []domain.PlayerID{1, 3}, 1},
		{"four degrees", "3", "5", OutcomeFound, []domain.PlayerID{3, 1, 2, 4, 5}, 4},
		{"same player", "1", "1", OutcomeSamePlayer, []domain.PlayerID{1}, 0},
		{"unknown player", "1", "999", OutcomePlayerNotFound, []domain.PlayerID{}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.Find(context.Background(), tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.path, pathIDs(res.Path))
			assert.Equal(t, tt.degrees, res.Degrees)
			if tt.degrees > 0 {
				assert.Len(t, res.Links, tt.degrees)
			} else {
				assert.Empty(t, res.Links)
			}
		})
	}
}

func TestFindEnrichesLinks(t *testing.T) {
	f := newTestFinder(&staticGraph{graph: scenarioGraph()}, scenarioMetadata())

	res, err := f.Find(context.Background(), "1", "5")
	require.NoError(t, err)
	require.Len(t, res.Links, 3)

	first := res.Links[0]
	assert.Equal(t, "LeBron James", first.Source.Name)
	assert.Equal(t, "Kyrie Irving", first.Target.Name)
	assert.Equal(t, "CLE (2014-2017)", first.SharedTeams)
	require.NotNil(t, first.StartYearTogether)
	assert.Equal(t, 2014, *first.StartYearTogether)

	assert.Equal(t, "BKN (2020-2022)", res.Links[1].SharedTeams)
	assert.Nil(t, res.Links[1].StartYearTogether)
	assert.Equal(t, domain.PlayerID(5), res.Links[2].Target.ID)
}

func TestFindMissingMetadataUsesPlaceholders(t *testing.T) {
	f := newTestFinder(&staticGraph{graph: scenarioGraph()}, scenarioMetadata())

	res, err := f.Find(context.Background(), "3", "1")
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, domain.DetailsUnavailable, res.Links[0].SharedTeams)
	assert.Equal(t, domain.DetailsUnavailable, res.Links[0].SharedGamesRecord)
	assert.Nil(t, res.Links[0].StartYearTogether)
	assert.Equal(t, domain.MetadataMissing, res.Links[0].MetadataStatus)
}

func TestFindMetadataFailureDoesNotAbort(t *testing.T) {
	store := scenarioMetadata()
	failing := metadata.LookupFunc(func(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
		if key == domain.NewPairKey(2, 4) {
			return domain.EdgeMetadata{}, false, errors.New("connection reset")
		}
		return store.Lookup(ctx, key)
	})

	core, logs := observer.New(zap.WarnLevel)
	metrics := observability.NewCollector("test")
	f := NewFinder(&staticGraph{graph: scenarioGraph()}, failing, Options{}, zap.New(core), metrics)

	res, err := f.Find(context.Background(), "1", "5")
	require.NoError(t, err)
	require.Len(t, res.Links, 3)

	assert.Equal(t, "CLE (2014-2017)", res.Links[0].SharedTeams)
	assert.Equal(t, domain.DetailsUnavailable, res.Links[1].SharedTeams)
	assert.Equal(t, domain.DetailsUnavailable, res.Links[1].SharedGamesRecord)
	assert.Equal(t, domain.MetadataFailed, res.Links[1].MetadataStatus)
	assert.Equal(t, "OKC (2008-2016)", res.Links[2].SharedTeams)

	assert.Equal(t, 1, logs.FilterMessage("Edge metadata lookup failed").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MetadataLookups.WithLabelValues("failed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.MetadataLookups.WithLabelValues("found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Searches.WithLabelValues("found")))
}

func TestFindLookupTimeout(t *testing.T) {
	slow := metadata.LookupFunc(func(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
		<-ctx.Done()
		return domain.EdgeMetadata{}, false, ctx.Err()
	})
	f := NewFinder(&staticGraph{graph: scenarioGraph()}, slow, Options{LookupTimeout: 20 * time.Millisecond}, nil, nil)

	res, err := f.Find(context.Background(), "1", "5")
	require.NoError(t, err)
	for _, l := range res.Links {
		assert.Equal(t, domain.MetadataFailed, l.MetadataStatus)
		assert.Equal(t, domain.DetailsUnavailable, l.SharedTeams)
	}
}

func TestFindRespectsConcurrencyLimit(t *testing.T) {
	var mu sync.Mutex
	var inFlight, peak int
	lookup := metadata.LookupFunc(func(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return domain.EdgeMetadata{}, false, nil
	})

	g := &domain.Graph{Adjacency: chain(7), Names: domain.Names{}}
	for i := 1; i <= 7; i++ {
		g.Names[domain.PlayerID(i)] = "Player"
	}
	f := NewFinder(&staticGraph{graph: g}, lookup, Options{EnrichConcurrency: 2}, nil, nil)

	res, err := f.Find(context.Background(), "1", "7")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Degrees)
	assert.LessOrEqual(t, peak, 2)
}

func TestFindNoConnection(t *testing.T) {
	g := &domain.Graph{Adjacency: chain(8), Names: domain.Names{}}
	for i := 1; i <= 8; i++ {
		g.Names[domain.PlayerID(i)] = "Player"
	}
	g.Names[9] = "Isolated"
	f := newTestFinder(&staticGraph{graph: g}, nil)

	for _, end := range []string{"8", "9"} {
		res, err := f.Find(context.Background(), "1", end)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoConnection, res.Outcome)
		assert.Equal(t, -1, res.Degrees)
		assert.Empty(t, res.Path)
		assert.Empty(t, res.Links)
		assert.Contains(t, res.Message, "No connection found")
	}
}

func TestFindSamePlayerWithSelfLoop(t *testing.T) {
	g := &domain.Graph{
		Adjacency: domain.Adjacency{1: {1, 2}, 2: {1}},
		Names:     domain.Names{1: "A", 2: "B"},
	}
	f := newTestFinder(&staticGraph{graph: g}, nil)

	res, err := f.Find(context.Background(), "1", " 1 ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSamePlayer, res.Outcome)
	assert.Equal(t, 0, res.Degrees)
	assert.Equal(t, []domain.Player{{ID: 1, Name: "A"}}, res.Path)
	assert.Empty(t, res.Links)
	assert.True(t, res.Connected())
}

func TestFindUnknownPlayers(t *testing.T) {
	f := newTestFinder(&staticGraph{graph: scenarioGraph()}, nil)

	res, err := f.Find(context.Background(), "998", "999")
	require.NoError(t, err)
	assert.Equal(t, OutcomePlayerNotFound, res.Outcome)
	assert.Equal(t, []domain.PlayerID{998, 999}, res.MissingPlayerIDs)
	assert.Equal(t, "Players not found: 998, 999.", res.Message)

	res, err = f.Find(context.Background(), "999", "999")
	require.NoError(t, err)
	assert.Equal(t, OutcomePlayerNotFound, res.Outcome, "existence is checked before same-player")
	assert.Equal(t, "Player not found: 999.", res.Message)
}

func TestFindUnnamedNeighbourRendersUnknown(t *testing.T) {
	g := &domain.Graph{
		Adjacency: domain.Adjacency{1: {7}, 7: {2}},
		Names:     domain.Names{1: "A", 2: "B"},
	}
	f := newTestFinder(&staticGraph{graph: g}, nil)

	res, err := f.Find(context.Background(), "1", "2")
	require.NoError(t, err)
	require.Len(t, res.Path, 3)
	assert.Equal(t, domain.UnknownPlayerName, res.Path[1].Name)
}

func TestFindInvalidIDsSkipGraph(t *testing.T) {
	graphs := &staticGraph{graph: scenarioGraph()}
	f := newTestFinder(graphs, nil)

	for _, ids := range [][2]string{{"", "1"}, {"1", "abc"}, {"1.5", "2"}, {"LeBron", "Kyrie"}} {
		_, err := f.Find(context.Background(), ids[0], ids[1])
		assert.ErrorIs(t, err, ErrInvalidPlayerID, "%q -> %q", ids[0], ids[1])
	}
	assert.Zero(t, graphs.loads.Load())
}

func TestFindGraphUnavailable(t *testing.T) {
	loadErr := errors.New("graph data unavailable")
	f := newTestFinder(&staticGraph{err: loadErr}, nil)

	res, err := f.Find(context.Background(), "1", "5")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, loadErr)
}

func TestFindIsIdempotent(t *testing.T) {
	f := newTestFinder(&staticGraph{graph: scenarioGraph()}, scenarioMetadata())

	first, err := f.Find(context.Background(), "3", "5")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := f.Find(context.Background(), "3", "5")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewFinderClampsMaxDegrees(t *testing.T) {
	assert.Equal(t, MaxDegrees, NewFinder(nil, nil, Options{MaxDegrees: 12}, nil, nil).MaxDegrees())
	assert.Equal(t, 3, NewFinder(nil, nil, Options{MaxDegrees: 3}, nil, nil).MaxDegrees())
}
