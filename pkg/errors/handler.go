package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Details   string `json:"details"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorHandler handles errors and sends appropriate HTTP responses
type ErrorHandler struct {
	logger        *zap.Logger
	debug         bool
	defaultStatus int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:        logger,
		debug:         debug,
		defaultStatus: http.StatusInternalServerError,
	}
}

// Handle processes an error and sends an HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	status, response := h.Render(r, err)
	h.WriteJSON(w, status, response)
}

// Render converts an error into a status code and response body and logs it.
// Callers that need to decorate the body (for example with the request's
// input echo) use Render and write the response themselves.
func (h *ErrorHandler) Render(r *http.Request, err error) (int, ErrorResponse) {
	requestID := r.Header.Get("X-Request-ID")

	appErr := GetAppError(err)
	if appErr == nil {
		response := ErrorResponse{
			Error:     statusTitle(h.defaultStatus),
			Type:      string(ErrorTypeInternal),
			Message:   "An internal error occurred",
			Details:   "unexpected failure, see server logs",
			RequestID: requestID,
		}

		h.logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Int("status", h.defaultStatus),
		)

		// Raw error text only leaves the process in debug mode
		if h.debug {
			response.Details = err.Error()
		}
		return h.defaultStatus, response
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = h.defaultStatus
	}

	details := appErr.Message
	if appErr.Cause != nil {
		details = appErr.Cause.Error()
	}
	message := appErr.Message
	// Causes of server-side failures stay in the logs
	if status >= 500 && !h.debug {
		details = appErr.Message
		if appErr.Type == ErrorTypeInternal {
			message = "An internal error occurred"
			details = "unexpected failure, see server logs"
		}
	}

	h.logError(r, appErr, status)

	return status, ErrorResponse{
		Error:     statusTitle(status),
		Type:      string(appErr.Type),
		Message:   message,
		Details:   details,
		Code:      appErr.Code,
		RequestID: requestID,
	}
}

// logError logs an application error with appropriate level
func (h *ErrorHandler) logError(r *http.Request, err *AppError, status int) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
	}

	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}

	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}

	if h.debug && err.StackTrace != "" {
		fields = append(fields, zap.String("stack_trace", err.StackTrace))
	}

	// Log based on error type and status
	switch {
	case status >= 500:
		h.logger.Error(err.Message, fields...)
	case status >= 400:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Info(err.Message, fields...)
	}
}

// WriteJSON sends a JSON response
func (h *ErrorHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode error response",
			zap.Error(err),
			zap.Any("data", data),
		)
	}
}

// Middleware returns an HTTP middleware that converts panics into error responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, NewInternalError("An internal error occurred").WithCause(fmt.Errorf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func statusTitle(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Error"
}
