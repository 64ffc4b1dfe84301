package graphstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"hoopgraph-backend/internal/domain"
)

var errNotObject = errors.New("document root is not a JSON object")

// DecodeAdjacency parses {"<id>": [<id>, ...]}. Neighbour order is kept as
// written. Neighbours may be numbers or numeric strings; a null list is empty.
func DecodeAdjacency(data []byte) (domain.Adjacency, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	adjacency := make(domain.Adjacency, len(raw))
	for key, value := range raw {
		id, err := domain.ParsePlayerID(key)
		if err != nil {
			return nil, fmt.Errorf("adjacency key: %w", err)
		}

		var neighbors []json.Number
		if err := json.Unmarshal(value, &neighbors); err != nil {
			return nil, fmt.Errorf("neighbours of %s must be an array of ids: %w", key, err)
		}

		ids := make([]domain.PlayerID, 0, len(neighbors))
		for _, n := range neighbors {
			nid, err := domain.ParsePlayerID(n.String())
			if err != nil {
				return nil, fmt.Errorf("neighbour of %s: %w", key, err)
			}
			ids = append(ids, nid)
		}
		adjacency[id] = ids
	}
	return adjacency, nil
}

// nameRecord covers the object shapes seen in player name exports.
type nameRecord struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FirstCamel string `json:"firstName"`
	LastCamel  string `json:"lastName"`
	FullName   string `json:"full_name"`
	Name       string `json:"name"`
}

func (r nameRecord) display() string {
	first := firstNonEmpty(r.FirstName, r.FirstCamel)
	last := firstNonEmpty(r.LastName, r.LastCamel)
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	return firstNonEmpty(r.FullName, r.Name)
}

// DecodeNames parses {"<id>": "Full Name"} or {"<id>": {"first_name", "last_name"}}.
func DecodeNames(data []byte) (domain.Names, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	names := make(domain.Names, len(raw))
	for key, value := range raw {
		id, err := domain.ParsePlayerID(key)
		if err != nil {
			return nil, fmt.Errorf("names key: %w", err)
		}

		value = bytes.TrimSpace(value)
		switch {
		case len(value) > 0 && value[0] == '"':
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return nil, fmt.Errorf("name of %s: %w", key, err)
			}
			names[id] = strings.TrimSpace(name)
		case len(value) > 0 && value[0] == '{':
			var rec nameRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return nil, fmt.Errorf("name of %s: %w", key, err)
			}
			names[id] = rec.display()
		default:
			return nil, fmt.Errorf("name of %s must be a string or an object", key)
		}
	}
	return names, nil
}

// decodeObject rejects null, arrays and scalars before decoding the members.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return raw, nil
}

// Symmetrize returns a copy where every one-way edge a->b also has b->a.
// Reverse edges are appended after the existing neighbours, by ascending
// source ID, so the result is deterministic.
func Symmetrize(adjacency domain.Adjacency) domain.Adjacency {
	out := make(domain.Adjacency, len(adjacency))
	present := make(map[domain.PlayerID]map[domain.PlayerID]struct{}, len(adjacency))
	for id, neighbors := range adjacency {
		out[id] = append([]domain.PlayerID(nil), neighbors...)
		set := make(map[domain.PlayerID]struct{}, len(neighbors))
		for _, n := range neighbors {
			set[n] = struct{}{}
		}
		present[id] = set
	}

	for _, id := range sortedKeys(adjacency) {
		for _, n := range adjacency[id] {
			if n == id {
				continue
			}
			set, ok := present[n]
			if !ok {
				set = make(map[domain.PlayerID]struct{})
				present[n] = set
			}
			if _, ok := set[id]; ok {
				continue
			}
			set[id] = struct{}{}
			out[n] = append(out[n], id)
		}
	}
	return out
}

// SortNeighbors orders every neighbour list ascending in place.
func SortNeighbors(adjacency domain.Adjacency) {
	for _, neighbors := range adjacency {
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
	}
}

func sortedKeys(adjacency domain.Adjacency) []domain.PlayerID {
	keys := make([]domain.PlayerID, 0, len(adjacency))
	for id := range adjacency {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
