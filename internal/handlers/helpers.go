package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/liber/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps a structured service error to an HTTP response.
func WriteServiceError(w http.ResponseWriter, err error) error {
	return WriteError(w, statusForError(err), err.Error())
}

// statusForError maps error kinds to HTTP statuses. Untyped errors are
// internal failures.
func statusForError(err error) int {
	switch models.KindOf(err) {
	case models.ErrValidation:
		return http.StatusBadRequest
	case models.ErrIngestionConflict:
		return http.StatusConflict
	case models.ErrCapacity:
		return http.StatusTooManyRequests
	case models.ErrUpstreamUnavailable:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
