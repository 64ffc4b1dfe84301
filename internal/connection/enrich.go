package connection

import (
	"context"
	"time"

	"hoopgraph-backend/internal/domain"
	"hoopgraph-backend/internal/metadata"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// lookupEdges resolves metadata for every consecutive pair on path. Lookups
// run concurrently, at most limit at a time, each under its own timeout.
// The returned slice is indexed by edge and always has len(path)-1 entries.
func lookupEdges(ctx context.Context, lookup metadata.Lookup, path []domain.PlayerID, limit int, timeout time.Duration, logger *zap.Logger) []domain.MetadataResult {
	if len(path) < 2 {
		return []domain.MetadataResult{}
	}
	results := make([]domain.MetadataResult, len(path)-1)

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < len(path)-1; i++ {
		key := domain.NewPairKey(path[i], path[i+1])
		g.Go(func() error {
			results[i] = lookupEdge(ctx, lookup, key, timeout)
			if results[i].Status == domain.MetadataFailed {
				logger.Warn("Edge metadata lookup failed",
					zap.String("pair", key.String()),
					zap.Int("edge", i),
					zap.Error(results[i].Err),
				)
			}
			return nil
		})
	}
	// Failures are recorded per edge; the group itself never errors.
	_ = g.Wait()

	return results
}

func lookupEdge(ctx context.Context, lookup metadata.Lookup, key domain.PairKey, timeout time.Duration) domain.MetadataResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m, found, err := lookup.Lookup(ctx, key)
	switch {
	case err != nil:
		return domain.Failed(err)
	case !found:
		return domain.Missing()
	default:
		return domain.Found(m)
	}
}

func buildLinks(players []domain.Player, results []domain.MetadataResult) []Link {
	links := make([]Link, len(results))
	for i, res := range results {
		m := res.OrPlaceholder()
		links[i] = Link{
			Source:            players[i],
			Target:            players[i+1],
			SharedTeams:       m.SharedTeams,
			SharedGamesRecord: m.SharedGamesRecord,
			StartYearTogether: m.StartYearTogether,
			MetadataStatus:    res.Status,
		}
	}
	return links
}
