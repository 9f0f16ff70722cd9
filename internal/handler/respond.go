// Package handler exposes the circle and auth services over JSON HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tandalabs/tanda/internal/auth"
	"github.com/tandalabs/tanda/internal/models"
)

// errorBody is the wire shape of every failure: one stable kind plus a
// human-readable message, so integrators can match kinds and show precise
// remediation messages.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	msg := err.Error()
	if kind == "Internal" {
		// Do not leak internals to clients.
		msg = "internal error"
		slog.Error("Internal error", "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

// classify maps an error to its wire kind and HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, models.ErrCircleNotFound):
		return "CircleNotFound", http.StatusNotFound
	case errors.Is(err, models.ErrInvalidAmount):
		return "InvalidAmount", http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return "Unauthorized", http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Unauthorized", http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword):
		return "WeakPassword", http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailExists):
		return "EmailExists", http.StatusConflict
	case models.IsDomainError(err):
		// Remaining domain errors are all wrong-state or wrong-sequence
		// rejections.
		return models.ErrorKind(err), http.StatusConflict
	default:
		return "Internal", http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Kind:    "InvalidRequest",
			Message: "malformed JSON body",
		}})
		return false
	}
	return true
}
