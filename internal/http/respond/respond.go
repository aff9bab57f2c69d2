package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/importer"
	"github.com/MrJamesThe3rd/budget/internal/matching"
	"github.com/MrJamesThe3rd/budget/internal/shopping"
)

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Message writes a {message} body.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorResponse{Message: msg})
}

// Error maps a service error to its status code and body.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var verr *budget.ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, errorResponse{Message: verr.Message, Field: verr.Field})
		return
	}

	switch {
	case errors.Is(err, budget.ErrInsufficientFunds),
		errors.Is(err, shopping.ErrInvalid),
		errors.Is(err, matching.ErrInvalid),
		errors.Is(err, importer.ErrUnknownFormat):
		Message(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, budget.ErrNotFound), errors.Is(err, shopping.ErrNotFound):
		Message(w, http.StatusNotFound, "not found")
	case errors.Is(err, budget.ErrConflict), errors.Is(err, budget.ErrStorageUnavailable):
		slog.WarnContext(r.Context(), "transient failure", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		Message(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		Message(w, http.StatusInternalServerError, "internal error")
	}
}

// UserID returns the authenticated user. The auth middleware guarantees it
// on every API route; a missing id is answered with 401.
func UserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		Message(w, http.StatusUnauthorized, "unauthorized")
	}

	return id, ok
}
