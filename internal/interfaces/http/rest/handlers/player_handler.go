package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hoopgraph-backend/internal/connection"
	"hoopgraph-backend/internal/domain"
	"hoopgraph-backend/internal/graphstore"
	apperrors "hoopgraph-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxSearchLimit = 100

// GraphSource exposes the shared snapshot. *graphstore.Store satisfies it.
type GraphSource interface {
	Load(ctx context.Context) (*domain.Graph, error)
	State() graphstore.State
	LoadedAt() time.Time
}

// PlayerHandler serves player lookups and graph statistics.
type PlayerHandler struct {
	graphs       GraphSource
	searchLimit  int
	maxDegrees   int
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(graphs GraphSource, searchLimit, maxDegrees int, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *PlayerHandler {
	if searchLimit <= 0 {
		searchLimit = 20
	}
	if maxDegrees <= 0 {
		maxDegrees = connection.MaxDegrees
	}
	return &PlayerHandler{
		graphs:       graphs,
		searchLimit:  searchLimit,
		maxDegrees:   maxDegrees,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// GetPlayer handles GET /players/{playerID}
func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("Player ID must be an integer").WithCause(err))
		return
	}

	graph, ok := h.load(w, r)
	if !ok {
		return
	}
	if !graph.HasPlayer(id) {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError("player "+id.String()).WithCode(apperrors.CodePlayerNotFound))
		return
	}

	p := graph.Player(id)
	h.errorHandler.WriteJSON(w, http.StatusOK, PlayerResponse{
		ID:            int64(p.ID),
		Name:          p.Name,
		TeammateCount: len(graph.Neighbors(id)),
	})
}

// SearchPlayers handles GET /players?q=&limit=
func (h *PlayerHandler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("query parameter q is required"))
		return
	}

	limit := h.searchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxSearchLimit)
	}

	graph, ok := h.load(w, r)
	if !ok {
		return
	}

	matches := graph.SearchPlayers(query, limit)
	players := make([]PlayerDTO, len(matches))
	for i, p := range matches {
		players[i] = newPlayerDTO(p)
	}
	h.errorHandler.WriteJSON(w, http.StatusOK, PlayerSearchResponse{
		Query:   query,
		Players: players,
		Count:   len(players),
	})
}

// GetGraphStats handles GET /graph/stats
func (h *PlayerHandler) GetGraphStats(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.load(w, r)
	if !ok {
		return
	}
	h.errorHandler.WriteJSON(w, http.StatusOK, GraphStatsResponse{
		GraphStats: graph.Stats(),
		MaxDegrees: h.maxDegrees,
		LoadedAt:   h.graphs.LoadedAt(),
	})
}

func (h *PlayerHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Graph, bool) {
	graph, err := h.graphs.Load(r.Context())
	if err == nil {
		return graph, true
	}
	if errors.Is(err, context.Canceled) {
		return nil, false
	}
	h.errorHandler.Handle(w, r, translateFindError(err))
	return nil, false
}
