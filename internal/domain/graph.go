package domain

import (
	"sort"
	"strings"
)

// Adjacency maps a player to the teammates listed for them, in source order.
type Adjacency map[PlayerID][]PlayerID

// Names maps a player to their display name.
type Names map[PlayerID]string

// Graph is a loaded, read-only snapshot of the teammate graph.
type Graph struct {
	Adjacency Adjacency
	Names     Names
}

// GraphStats summarises a snapshot.
type GraphStats struct {
	Players         int `json:"players"`
	AdjacencyKeys   int `json:"adjacencyKeys"`
	DirectedEdges   int `json:"directedEdges"`
	OneWayEdges     int `json:"oneWayEdges"`
	IsolatedPlayers int `json:"isolatedPlayers"`
	MaxTeammates    int `json:"maxTeammates"`
}

// HasPlayer reports whether the ID has a name entry.
func (g *Graph) HasPlayer(id PlayerID) bool {
	_, ok := g.Names[id]
	return ok
}

// Neighbors returns the teammates of id; nil when the ID has no adjacency entry.
func (g *Graph) Neighbors(id PlayerID) []PlayerID {
	return g.Adjacency[id]
}

// Player resolves an ID to a Player, falling back to UnknownPlayerName.
func (g *Graph) Player(id PlayerID) Player {
	name, ok := g.Names[id]
	if !ok || name == "" {
		name = UnknownPlayerName
	}
	return Player{ID: id, Name: name}
}

// Stats walks the adjacency list once.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		Players:       len(g.Names),
		AdjacencyKeys: len(g.Adjacency),
	}

	for id, neighbors := range g.Adjacency {
		stats.DirectedEdges += len(neighbors)
		if len(neighbors) > stats.MaxTeammates {
			stats.MaxTeammates = len(neighbors)
		}
		for _, n := range neighbors {
			if !g.hasEdge(n, id) {
				stats.OneWayEdges++
			}
		}
	}

	for id := range g.Names {
		if len(g.Adjacency[id]) == 0 {
			stats.IsolatedPlayers++
		}
	}

	return stats
}

func (g *Graph) hasEdge(from, to PlayerID) bool {
	for _, n := range g.Adjacency[from] {
		if n == to {
			return true
		}
	}
	return false
}

// SearchPlayers returns players whose name contains query (case-insensitive).
// Prefix matches come first; ties are ordered by name then ID.
func (g *Graph) SearchPlayers(query string, limit int) []Player {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []Player{}
	}

	type match struct {
		player Player
		prefix bool
	}
	var matches []match
	for id, name := range g.Names {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, q) {
			continue
		}
		prefix := strings.HasPrefix(lower, q)
		if !prefix {
			// Also treat a last-name prefix as a prefix match
			for _, part := range strings.Fields(lower) {
				if strings.HasPrefix(part, q) {
					prefix = true
					break
				}
			}
		}
		matches = append(matches, match{player: Player{ID: id, Name: name}, prefix: prefix})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].prefix != matches[j].prefix {
			return matches[i].prefix
		}
		if matches[i].player.Name != matches[j].player.Name {
			return matches[i].player.Name < matches[j].player.Name
		}
		return matches[i].player.ID < matches[j].player.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	players := make([]Player, len(matches))
	for i, m := range matches {
		players[i] = m.player
	}
	return players
}
