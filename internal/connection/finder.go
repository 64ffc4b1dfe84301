// Package connection finds the shortest teammate chain between two players
// and enriches each hop with shared-history metadata.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hoopgraph-backend/internal/domain"
	"hoopgraph-backend/internal/metadata"
	"hoopgraph-backend/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrInvalidPlayerID is returned when either raw ID is missing or not an
// integer. It is detected before the graph is touched.
var ErrInvalidPlayerID = errors.New("invalid player id")

// GraphLoader supplies the graph snapshot. *graphstore.Store satisfies it.
type GraphLoader interface {
	Load(ctx context.Context) (*domain.Graph, error)
}

// Options tunes the search.
type Options struct {
	MaxDegrees        int
	EnrichConcurrency int
	LookupTimeout     time.Duration
}

// Finder answers connection queries against the shared snapshot.
type Finder struct {
	graphs  GraphLoader
	lookup  metadata.Lookup
	opts    Options
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  trace.Tracer
}

// NewFinder creates a Finder. lookup may be nil, in which case every edge
// gets placeholders. metrics may be nil.
func NewFinder(graphs GraphLoader, lookup metadata.Lookup, opts Options, logger *zap.Logger, metrics *observability.Collector) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookup == nil {
		lookup = metadata.None{}
	}
	if opts.MaxDegrees <= 0 || opts.MaxDegrees > MaxDegrees {
		opts.MaxDegrees = MaxDegrees
	}
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = MaxDegrees
	}
	return &Finder{
		graphs:  graphs,
		lookup:  lookup,
		opts:    opts,
		logger:  logger.Named("connection"),
		metrics: metrics,
		tracer:  otel.Tracer("hoopgraph/connection"),
	}
}

// MaxDegrees returns the effective search bound.
func (f *Finder) MaxDegrees() int {
	return f.opts.MaxDegrees
}

// Find searches for the shortest path between two raw player IDs.
//
// Unknown players, same-player queries and unreachable targets are reported
// through Result.Outcome. Errors are reserved for malformed IDs
// (ErrInvalidPlayerID), graph load failures and context cancellation.
func (f *Finder) Find(ctx context.Context, startRaw, endRaw string) (*Result, error) {
	ctx, span := f.tracer.Start(ctx, "connection.Find")
	defer span.End()

	start, end, err := parseIDs(startRaw, endRaw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		f.metrics.ObserveSearch("invalid", -1)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("player.start", int64(start)),
		attribute.Int64("player.end", int64(end)),
	)

	graph, err := f.graphs.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph load failed")
		f.metrics.ObserveSearch("error", -1)
		return nil, err
	}

	result := newResult(startRaw, endRaw, start, end)
	f.search(ctx, graph, result)

	span.SetAttributes(
		attribute.String("connection.outcome", result.Outcome.String()),
		attribute.Int("connection.degrees", result.Degrees),
	)
	f.metrics.ObserveSearch(result.Outcome.String(), result.Degrees)
	f.logger.Debug("Connection search finished",
		zap.Int64("start", int64(start)),
		zap.Int64("end", int64(end)),
		zap.String("outcome", result.Outcome.String()),
		zap.Int("degrees", result.Degrees),
	)
	return result, nil
}

func (f *Finder) search(ctx context.Context, graph *domain.Graph, result *Result) {
	start, end := result.StartID, result.EndID

	for _, id := range []domain.PlayerID{start, end} {
		if !graph.HasPlayer(id) && !containsID(result.MissingPlayerIDs, id) {
			result.MissingPlayerIDs = append(result.MissingPlayerIDs, id)
		}
	}
	if len(result.MissingPlayerIDs) > 0 {
		result.Outcome = OutcomePlayerNotFound
		result.Message = notFoundMessage(result.MissingPlayerIDs)
		return
	}

	if start == end {
		result.Outcome = OutcomeSamePlayer
		result.Path = []domain.Player{graph.Player(start)}
		result.Degrees = 0
		return
	}

	_, bfsSpan := f.tracer.Start(ctx, "connection.bfs")
	ids := ShortestPath(graph.Adjacency, start, end, f.opts.MaxDegrees)
	bfsSpan.SetAttributes(attribute.Int("connection.path_length", len(ids)))
	bfsSpan.End()

	if ids == nil {
		result.Outcome = OutcomeNoConnection
		result.Message = noConnectionMessage(graph.Player(start), graph.Player(end), f.opts.MaxDegrees)
		return
	}

	players := make([]domain.Player, len(ids))
	for i, id := range ids {
		players[i] = graph.Player(id)
	}

	enrichCtx, enrichSpan := f.tracer.Start(ctx, "connection.enrich")
	statuses := lookupEdges(enrichCtx, f.lookup, ids, f.opts.EnrichConcurrency, f.opts.LookupTimeout, f.logger)
	enrichSpan.End()
	for _, s := range statuses {
		f.metrics.ObserveMetadataLookup(s.Status.String())
	}

	result.Outcome = OutcomeFound
	result.Path = players
	result.Degrees = len(ids) - 1
	result.Links = buildLinks(players, statuses)
}

func parseIDs(startRaw, endRaw string) (domain.PlayerID, domain.PlayerID, error) {
	start, err := domain.ParsePlayerID(startRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start %q", ErrInvalidPlayerID, startRaw)
	}
	end, err := domain.ParsePlayerID(endRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end %q", ErrInvalidPlayerID, endRaw)
	}
	return start, end, nil
}

func containsID(ids []domain.PlayerID, id domain.PlayerID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
