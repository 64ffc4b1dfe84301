package metadata

import (
	"context"
	"fmt"

	"hoopgraph-backend/internal/domain"

	"github.com/supabase-community/postgrest-go"
)

const pairColumns = "player_id_low,player_id_high,shared_teams,shared_games_record,start_year_together"

// TableQuerier starts a PostgREST query. Both *supabase.Client and
// *postgrest.Client satisfy it.
type TableQuerier interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseStore looks up pairs in a Supabase (PostgREST) table.
type SupabaseStore struct {
	client TableQuerier
	table  string
}

// NewSupabaseStore creates a store reading from table.
func NewSupabaseStore(client TableQuerier, table string) *SupabaseStore {
	return &SupabaseStore{client: client, table: table}
}

type queryResult struct {
	rows []domain.PairRecord
	err  error
}

// Lookup implements Lookup. The PostgREST client takes no context, so the
// request runs in its own goroutine and Lookup returns when ctx is done.
func (s *SupabaseStore) Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
	key = domain.NewPairKey(key.Low, key.High)

	done := make(chan queryResult, 1)
	go func() {
		var rows []domain.PairRecord
		_, err := s.client.From(s.table).
			Select(pairColumns, "", false).
			Eq("player_id_low", key.Low.String()).
			Eq("player_id_high", key.High.String()).
			Limit(1, "").
			ExecuteTo(&rows)
		done <- queryResult{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return domain.EdgeMetadata{}, false, fmt.Errorf("query %s for pair %s: %w", s.table, key, res.err)
		}
		if len(res.rows) == 0 {
			return domain.EdgeMetadata{}, false, nil
		}
		return res.rows[0].Metadata(), true, nil
	case <-ctx.Done():
		return domain.EdgeMetadata{}, false, ctx.Err()
	}
}
