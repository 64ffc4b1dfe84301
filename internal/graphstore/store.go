// Package graphstore loads the teammate graph once and shares the snapshot
// across searches.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hoopgraph-backend/internal/domain"
	"hoopgraph-backend/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrGraphUnavailable is returned when either graph document cannot be
// fetched or decoded. The store resets, so a later Load retries.
var ErrGraphUnavailable = errors.New("graph data unavailable")

// State is the lifecycle of the cached snapshot.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "empty"
	}
}

const flightKey = "graph"

// Options locate the two documents and control normalisation.
type Options struct {
	AdjacencyURL  string
	NamesURL      string
	LoadTimeout   time.Duration
	Symmetrize    bool
	SortNeighbors bool
}

// Store is a memoised loader for the graph snapshot. Successful loads are
// cached for the life of the process; failures return the store to empty.
type Store struct {
	fetcher Fetcher
	opts    Options
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  trace.Tracer

	mu         sync.RWMutex
	state      State
	graph      *domain.Graph
	loadedAt   time.Time
	generation uint64

	flight singleflight.Group
}

// NewStore creates an empty store. metrics may be nil.
func NewStore(fetcher Fetcher, opts Options, logger *zap.Logger, metrics *observability.Collector) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	return &Store{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger.Named("graphstore"),
		metrics: metrics,
		tracer:  otel.Tracer("hoopgraph/graphstore"),
	}
}

// Load returns the cached snapshot, fetching it on first use. Concurrent
// callers share one fetch. The fetch is detached from the caller's
// cancellation and bounded by LoadTimeout; each caller still stops waiting
// when its own context is done.
func (s *Store) Load(ctx context.Context) (*domain.Graph, error) {
	if g, ok := s.Snapshot(); ok {
		return g, nil
	}

	ch := s.flight.DoChan(flightKey, func() (interface{}, error) {
		// A previous flight may have finished between Snapshot and DoChan
		if g, ok := s.Snapshot(); ok {
			return g, nil
		}
		return s.fetchAndCache(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Graph), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Preload loads the graph at startup so the first search does not pay for it.
func (s *Store) Preload(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

// Snapshot returns the cached graph without triggering a load.
func (s *Store) Snapshot() (*domain.Graph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateLoaded {
		return nil, false
	}
	return s.graph, true
}

// State reports the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LoadedAt reports when the cached snapshot was loaded; zero when empty.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Invalidate drops the cached snapshot so the next Load fetches again. A
// fetch already in flight still answers its callers but is not cached.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.state = StateEmpty
	s.graph = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()

	s.flight.Forget(flightKey)
}

// beginLoad marks the store loading and returns the generation the fetch
// belongs to.
func (s *Store) beginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoading
	return s.generation
}

func (s *Store) fetchAndCache(ctx context.Context) (*domain.Graph, error) {
	gen := s.beginLoad()

	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "graphstore.fetch",
		trace.WithAttributes(
			attribute.String("graph.adjacency_url", s.opts.AdjacencyURL),
			attribute.String("graph.names_url", s.opts.NamesURL),
		),
	)
	defer span.End()

	start := time.Now()
	g, err := s.fetch(ctx)
	elapsed := time.Since(start)
	s.metrics.ObserveGraphLoad(err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph load failed")
		s.mu.Lock()
		if s.generation == gen {
			s.state = StateEmpty
		}
		s.mu.Unlock()
		s.logger.Error("Graph load failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
		)
		return nil, err
	}

	s.mu.Lock()
	current := s.generation == gen
	if current {
		s.graph = g
		s.state = StateLoaded
		s.loadedAt = time.Now()
	}
	s.mu.Unlock()
	if !current {
		s.logger.Info("Discarding graph loaded before invalidation")
		return g, nil
	}

	stats := g.Stats()
	span.SetAttributes(
		attribute.Int("graph.players", stats.Players),
		attribute.Int("graph.directed_edges", stats.DirectedEdges),
	)
	s.logger.Info("Graph loaded",
		zap.Int("players", stats.Players),
		zap.Int("adjacency_keys", stats.AdjacencyKeys),
		zap.Int("directed_edges", stats.DirectedEdges),
		zap.Int("one_way_edges", stats.OneWayEdges),
		zap.Duration("elapsed", elapsed),
	)
	return g, nil
}

// fetch downloads and decodes both documents in parallel. Neither is kept
// unless both succeed.
func (s *Store) fetch(ctx context.Context) (*domain.Graph, error) {
	var (
		adjacency domain.Adjacency
		names     domain.Names
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		data, err := s.fetcher.Fetch(egCtx, s.opts.AdjacencyURL)
		if err != nil {
			return fmt.Errorf("%w: fetch adjacency list: %w", ErrGraphUnavailable, err)
		}
		adjacency, err = DecodeAdjacency(data)
		if err != nil {
			return fmt.Errorf("%w: decode adjacency list: %w", ErrGraphUnavailable, err)
		}
		return nil
	})
	eg.Go(func() error {
		data, err := s.fetcher.Fetch(egCtx, s.opts.NamesURL)
		if err != nil {
			return fmt.Errorf("%w: fetch player names: %w", ErrGraphUnavailable, err)
		}
		names, err = DecodeNames(data)
		if err != nil {
			return fmt.Errorf("%w: decode player names: %w", ErrGraphUnavailable, err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if s.opts.Symmetrize {
		adjacency = Symmetrize(adjacency)
	}
	if s.opts.SortNeighbors {
		SortNeighbors(adjacency)
	}

	return &domain.Graph{Adjacency: adjacency, Names: names}, nil
}
