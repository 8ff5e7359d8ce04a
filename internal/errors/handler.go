package errors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	if reqID != "" {
		problem.WithExtension("trace_id", reqID)
	}

	// Written directly: render.JSON would reset the problem+json media type.
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	if encErr := json.NewEncoder(w).Encode(problem); encErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode problem response",
			slog.String("error", encErr.Error()))
	}
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	// Engine contract violations surface as client errors.
	switch {
	case strings.Contains(err.Error(), "length mismatch"):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypePanelMismatch,
			"Panel Length Mismatch",
			err.Error(),
			r.URL.Path,
		)
	case strings.Contains(err.Error(), "missing predictor"):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Incomplete Panel",
			err.Error(),
			r.URL.Path,
		)
	case strings.Contains(err.Error(), "unknown analyte"):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeUnknownAnalyte,
			"Unknown Analyte",
			err.Error(),
			r.URL.Path,
		)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	)
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		problemType = TypeValidation
	case http.StatusNotFound:
		problemType = TypeNotFound
	case http.StatusTooManyRequests:
		problemType = TypeRateLimit
	case http.StatusRequestEntityTooLarge:
		problemType = TypePayloadTooLarge
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	)
	if apiErr.Details != nil {
		problem.WithExtension("errors", apiErr.Details)
	}
	return problem
}
