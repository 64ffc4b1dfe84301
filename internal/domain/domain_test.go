package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlayerID(t *testing.T) {
	id, err := ParsePlayerID(" 2544 ")
	require.NoError(t, err)
	assert.Equal(t, PlayerID(2544), id)

	for _, raw := range []string{"", "  ", "abc", "12.5", "1e3", "0x10"} {
		_, err := ParsePlayerID(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewPairKeyIsUnordered(t *testing.T) {
	assert.Equal(t, NewPairKey(4, 2), NewPairKey(2, 4))
	assert.Equal(t, PairKey{Low: 2, High: 4}, NewPairKey(4, 2))
	assert.Equal(t, "2-4", NewPairKey(4, 2).String())
}

func testGraph() *Graph {
	return &Graph{
		Adjacency: Adjacency{
			1: {2, 3},
			2: {1},
			3: {},
			4: {1},
		},
		Names: Names{
			1: "LeBron James",
			2: "Dwyane Wade",
			3: "James Harden",
			4: "Anthony Davis",
			5: "Lonely Player",
		},
	}
}

func TestGraphPlayerFallsBackToUnknown(t *testing.T) {
	g := testGraph()
	assert.Equal(t, Player{ID: 1, Name: "LeBron James"}, g.Player(1))
	assert.Equal(t, Player{ID: 99, Name: UnknownPlayerName}, g.Player(99))
	assert.True(t, g.HasPlayer(5))
	assert.False(t, g.HasPlayer(99))
	assert.Nil(t, g.Neighbors(5))
}

func TestGraphStats(t *testing.T) {
	stats := testGraph().Stats()

	assert.Equal(t, 5, stats.Players)
	assert.Equal(t, 4, stats.AdjacencyKeys)
	assert.Equal(t, 4, stats.DirectedEdges)
	// 1->3 and 4->1 have no reverse edge
	assert.Equal(t, 2, stats.OneWayEdges)
	// 3 has an empty list and 5 has no entry
	assert.Equal(t, 2, stats.IsolatedPlayers)
	assert.Equal(t, 2, stats.MaxTeammates)
}

func TestSearchPlayers(t *testing.T) {
	g := testGraph()

	got := g.SearchPlayers("james", 10)
	require.Len(t, got, 2)
	// "James Harden" starts with the query, "LeBron James" has it as a word prefix
	assert.Equal(t, "James Harden", got[0].Name)
	assert.Equal(t, "LeBron James", got[1].Name)

	got = g.SearchPlayers("AVI", 10)
	require.Len(t, got, 1)
	assert.Equal(t, PlayerID(4), got[0].ID)

	assert.Len(t, g.SearchPlayers("a", 2), 2)
	assert.Empty(t, g.SearchPlayers("   ", 10))
	assert.Empty(t, g.SearchPlayers("zzz", 10))
}

func TestMetadataResultPlaceholders(t *testing.T) {
	year := 2010
	found := Found(EdgeMetadata{SharedTeams: "MIA", SharedGamesRecord: "224-70", StartYearTogether: &year})
	assert.Equal(t, "MIA", found.OrPlaceholder().SharedTeams)
	assert.Equal(t, &year, found.OrPlaceholder().StartYearTogether)

	for _, r := range []MetadataResult{Missing(), Failed(errors.New("timeout"))} {
		m := r.OrPlaceholder()
		assert.Equal(t, DetailsUnavailable, m.SharedTeams)
		assert.Equal(t, DetailsUnavailable, m.SharedGamesRecord)
		assert.Nil(t, m.StartYearTogether)
	}

	partial := Found(EdgeMetadata{SharedTeams: "CLE"})
	assert.Equal(t, DetailsUnavailable, partial.OrPlaceholder().SharedGamesRecord)
}
