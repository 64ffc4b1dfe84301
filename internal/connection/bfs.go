package connection

import "hoopgraph-backend/internal/domain"

// MaxDegrees is the hard ceiling on path length in edges.
const MaxDegrees = 6

type queueEntry struct {
	id    domain.PlayerID
	depth int
}

// ShortestPath runs a bounded breadth-first search from start to end over the
// adjacency list and returns the player IDs on the first shortest path found,
// or nil when end is not reachable within maxDegrees edges.
//
// Nodes are marked visited when discovered, neighbours are scanned in
// adjacency order, and a node whose path already has maxDegrees edges is not
// expanded. IDs that appear only as neighbours are dead ends. start == end
// yields a single-node path without consulting the adjacency list.
func ShortestPath(adjacency domain.Adjacency, start, end domain.PlayerID, maxDegrees int) []domain.PlayerID {
	if start == end {
		return []domain.PlayerID{start}
	}
	if maxDegrees <= 0 || maxDegrees > MaxDegrees {
		maxDegrees = MaxDegrees
	}

	parent := map[domain.PlayerID]domain.PlayerID{}
	visited := map[domain.PlayerID]struct{}{start: {}}
	queue := []queueEntry{{id: start, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDegrees {
			continue
		}

		for _, neighbor := range adjacency[current.id] {
			if _, seen := visited[neighbor]; seen {
				continue
			}
			visited[neighbor] = struct{}{}
			parent[neighbor] = current.id

			if neighbor == end {
				return reconstruct(parent, start, end)
			}
			if current.depth+1 < maxDegrees {
				queue = append(queue, queueEntry{id: neighbor, depth: current.depth + 1})
			}
		}
	}
	return nil
}

func reconstruct(parent map[domain.PlayerID]domain.PlayerID, start, end domain.PlayerID) []domain.PlayerID {
	path := []domain.PlayerID{end}
	for id := end; id != start; {
		id = parent[id]
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
