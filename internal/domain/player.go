// Package domain holds the value types shared by the graph store, the
// metadata lookups and the connection finder.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownPlayerName is shown when a path contains an ID with no name entry.
const UnknownPlayerName = "Unknown Player"

// PlayerID identifies a player in both the adjacency list and the name map.
type PlayerID int64

// ParsePlayerID parses a decimal player ID, tolerating surrounding whitespace.
func ParsePlayerID(raw string) (PlayerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("player id is empty")
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("player id %q is not an integer: %w", raw, err)
	}
	return PlayerID(id), nil
}

// String returns the decimal form used as a JSON object key.
func (id PlayerID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Player is a node of the teammate graph.
type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

// PairKey is the unordered key of a teammate edge: Low is always <= High.
type PairKey struct {
	Low  PlayerID
	High PlayerID
}

// NewPairKey orders two player IDs into a PairKey.
func NewPairKey(a, b PlayerID) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// String renders the key as "low-high" for logs.
func (k PairKey) String() string {
	return k.Low.String() + "-" + k.High.String()
}
