// Package http serves the set-expansion API over HTTP with JSON responses.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

// Context keys for request metadata.
type contextKey string

const (
	// requestIDKey is the context key for the request ID.
	requestIDKey contextKey = "request_id"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestIDMiddleware adds a unique request_id to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := GetRequestID(r.Context())
				log.Printf("http: panic serving %s (request %s): %v", r.URL.Path, requestID, rec)
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:     "internal server error",
					Code:      seterrors.CodeUnexpected,
					RequestID: requestID,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ContentTypeMiddleware ensures JSON content type for API responses.
func ContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ChainMiddleware chains multiple middleware functions together.
func ChainMiddleware(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// DefaultMiddleware returns the default middleware chain for API handlers.
func DefaultMiddleware() func(http.Handler) http.Handler {
	return ChainMiddleware(
		RequestIDMiddleware,
		RecoveryMiddleware,
		ContentTypeMiddleware,
	)
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch seterrors.GetCategory(err) {
	case seterrors.ErrCategoryValidation:
		return http.StatusBadRequest
	case seterrors.ErrCategorySession:
		return http.StatusNotFound
	case seterrors.ErrCategoryStore:
		return http.StatusBadGateway
	case seterrors.ErrCategoryExpansion:
		if seterrors.GetCode(err) == seterrors.CodeSeedNotInitialized {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeError writes err as an ErrorResponse with the status StatusFor picks.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := seterrors.GetCode(err)
	if code == "" {
		code = seterrors.CodeUnexpected
	}
	requestID := GetRequestID(r.Context())
	if status >= http.StatusInternalServerError {
		log.Printf("http: %s failed (request %s): %v", r.URL.Path, requestID, err)
	}
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestID,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
