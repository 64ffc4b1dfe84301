package connection

import (
	"fmt"
	"strings"

	"hoopgraph-backend/internal/domain"
)

// Outcome classifies a completed search.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeSamePlayer
	OutcomeNoConnection
	OutcomePlayerNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeSamePlayer:
		return "same_player"
	case OutcomeNoConnection:
		return "no_connection"
	case OutcomePlayerNotFound:
		return "player_not_found"
	default:
		return "unknown"
	}
}

// Link is one enriched edge of a path.
type Link struct {
	Source            domain.Player
	Target            domain.Player
	SharedTeams       string
	SharedGamesRecord string
	StartYearTogether *int
	// MetadataStatus is kept for logs and metrics, it is not rendered.
	MetadataStatus domain.MetadataStatus
}

// Result is the outcome of a search. Degrees is -1 unless a path was found.
type Result struct {
	Outcome  Outcome
	StartRaw string
	EndRaw   string
	StartID  domain.PlayerID
	EndID    domain.PlayerID

	Path    []domain.Player
	Degrees int
	Links   []Link

	MissingPlayerIDs []domain.PlayerID
	Message          string
}

// Connected reports whether the result carries a path.
func (r *Result) Connected() bool {
	return r.Outcome == OutcomeFound || r.Outcome == OutcomeSamePlayer
}

func newResult(startRaw, endRaw string, start, end domain.PlayerID) *Result {
	return &Result{
		StartRaw: startRaw,
		EndRaw:   endRaw,
		StartID:  start,
		EndID:    end,
		Path:     []domain.Player{},
		Degrees:  -1,
		Links:    []Link{},
	}
}

func notFoundMessage(missing []domain.PlayerID) string {
	ids := make([]string, len(missing))
	for i, id := range missing {
		ids[i] = id.String()
	}
	if len(ids) == 1 {
		return fmt.Sprintf("Player not found: %s.", ids[0])
	}
	return fmt.Sprintf("Players not found: %s.", strings.Join(ids, ", "))
}

func noConnectionMessage(start, end domain.Player, maxDegrees int) string {
	return fmt.Sprintf("No connection found between %s and %s within %d degrees.", start.Name, end.Name, maxDegrees)
}
