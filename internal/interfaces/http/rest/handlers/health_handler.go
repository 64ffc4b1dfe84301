package handlers

import (
	"context"
	"net/http"
	"time"

	"hoopgraph-backend/internal/graphstore"
	apperrors "hoopgraph-backend/pkg/errors"

	"go.uber.org/zap"
)

const (
	StatusHealthy  = "healthy"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Graph     string    `json:"graph,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HealthHandler provides liveness and readiness probes.
type HealthHandler struct {
	graphs       GraphSource
	readyTimeout time.Duration
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(graphs GraphSource, readyTimeout time.Duration, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *HealthHandler {
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}
	return &HealthHandler{
		graphs:       graphs,
		readyTimeout: readyTimeout,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Liveness handles GET /health
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.errorHandler.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Graph:     h.graphs.State().String(),
	})
}

// Readiness handles GET /ready. It triggers the graph load and reports 503
// until the snapshot is available.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	resp := HealthResponse{Status: StatusReady, Timestamp: time.Now().UTC()}
	status := http.StatusOK

	if _, err := h.graphs.Load(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		resp.Status = StatusNotReady
		resp.Error = "graph data not loaded"
		status = http.StatusServiceUnavailable
	}
	resp.Graph = h.graphs.State().String()

	h.errorHandler.WriteJSON(w, status, resp)
}

var _ GraphSource = (*graphstore.Store)(nil)
