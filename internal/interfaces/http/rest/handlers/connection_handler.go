package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"hoopgraph-backend/internal/connection"
	"hoopgraph-backend/internal/graphstore"
	apperrors "hoopgraph-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ConnectionFinder answers connection queries. *connection.Finder satisfies it.
type ConnectionFinder interface {
	Find(ctx context.Context, startRaw, endRaw string) (*connection.Result, error)
}

// ConnectionHandler serves /api/v1/connections.
type ConnectionHandler struct {
	finder       ConnectionFinder
	errorHandler *apperrors.ErrorHandler
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(finder ConnectionFinder, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		finder:       finder,
		errorHandler: errorHandler,
		validate:     newRequestValidator(),
		logger:       logger,
	}
}

// GetConnection handles GET /connections?start={id}&end={id}
func (h *ConnectionHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		h.respondError(w, r, start, end, apperrors.NewValidationError("query parameters start and end are required").WithCode(apperrors.CodeInvalidPlayerID))
		return
	}
	h.find(w, r, start, end)
}

// PostConnection handles POST /connections
func (h *ConnectionHandler) PostConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, "", "", apperrors.NewValidationError("Invalid request body").WithCode(apperrors.CodeInvalidBody).WithCause(err))
		return
	}
	start, end := string(req.StartPlayerID), string(req.EndPlayerID)

	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, r, start, end, apperrors.NewValidationError(formatRequestErrors(err)).WithCode(apperrors.CodeInvalidPlayerID))
		return
	}
	h.find(w, r, start, end)
}

func (h *ConnectionHandler) find(w http.ResponseWriter, r *http.Request, start, end string) {
	result, err := h.finder.Find(r.Context(), start, end)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Debug("Client went away during search",
				zap.String("start", start),
				zap.String("end", end),
			)
			return
		}
		h.respondError(w, r, start, end, translateFindError(err))
		return
	}

	status := http.StatusOK
	if result.Outcome == connection.OutcomePlayerNotFound {
		status = http.StatusNotFound
	}
	h.errorHandler.WriteJSON(w, status, NewConnectionResponse(result))
}

func translateFindError(err error) error {
	switch {
	case errors.Is(err, connection.ErrInvalidPlayerID):
		return apperrors.NewValidationError("Player IDs must be integers").
			WithCode(apperrors.CodeInvalidPlayerID).
			WithCause(err)
	case errors.Is(err, graphstore.ErrGraphUnavailable):
		return apperrors.NewUnavailableError("graph data").WithCode(apperrors.CodeGraphUnavailable).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("connection search")
	default:
		return err
	}
}

func (h *ConnectionHandler) respondError(w http.ResponseWriter, r *http.Request, start, end string, err error) {
	status, body := h.errorHandler.Render(r, err)
	h.errorHandler.WriteJSON(w, status, ConnectionErrorResponse{
		ErrorResponse:     body,
		SearchedPlayerIDs: SearchedPlayerIDs{P1: start, P2: end},
	})
}
