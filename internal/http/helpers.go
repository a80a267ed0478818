package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

// UserDirectory resolves the identity headers set by the auth proxy into a
// local user row.
type UserDirectory interface {
	GetOrCreateUser(ctx context.Context, externalID, email, displayName string) (*core.User, error)
}

type ctxKey int

const userIDKey ctxKey = 0

// requireUser resolves X-User-ID into an internal user and stores the user ID
// in the request context. Requests without the header are rejected.
func requireUser(users UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			externalID := r.Header.Get("X-User-ID")
			if externalID == "" {
				http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
				return
			}

			u, err := users.GetOrCreateUser(r.Context(), externalID,
				r.Header.Get("X-User-Email"), r.Header.Get("X-User-Name"))
			if err != nil {
				slog.ErrorContext(r.Context(), "Failed to resolve user", "external_id", externalID, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Validation failures
// and malformed input are the caller's fault, everything else is ours.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidRecurrence):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// dayQuery parses a YYYY-MM-DD query parameter. Empty values yield the zero
// time so callers can apply their own defaults.
func dayQuery(r *http.Request, name string) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.NewMoney(cents), nil
}
