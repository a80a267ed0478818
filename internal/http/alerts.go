package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type AlertHandler struct {
	svc *services.AlertEngine
}

func NewAlertHandler(svc *services.AlertEngine) *AlertHandler {
	return &AlertHandler{svc: svc}
}

func (h *AlertHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/count", h.count)
	r.Post("/generate", h.generate)
	r.Post("/{id}/read", h.markRead)
	r.Post("/read-all", h.markAllRead)
}

type alertResponse struct {
	ID                int64  `json:"id"`
	CategoryID        *int64 `json:"category_id,omitempty"`
	Type              string `json:"type"`
	Message           string `json:"message"`
	ThresholdCents    int64  `json:"threshold_cents"`
	CurrentValueCents int64  `json:"current_value_cents"`
	Read              bool   `json:"read"`
	CreatedAt         string `json:"created_at"`
}

func toAlertResponse(a core.Alert) alertResponse {
	return alertResponse{
		ID:                a.ID,
		CategoryID:        a.CategoryID,
		Type:              a.Type,
		Message:           a.Message,
		ThresholdCents:    a.Threshold.Cents,
		CurrentValueCents: a.CurrentValue.Cents,
		Read:              a.Read,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// list returns unread alerts by default, or a filtered history when one of
// type, category or since is set.
func (h *AlertHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		alerts []core.Alert
		err    error
	)

	switch q := r.URL.Query(); {
	case q.Get("type") != "":
		alerts, err = h.svc.AlertsByType(r.Context(), userID(r), q.Get("type"))
	case q.Get("category") != "":
		var categoryID int64
		categoryID, err = strconv.ParseInt(q.Get("category"), 10, 64)
		if err != nil {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		alerts, err = h.svc.AlertsByCategory(r.Context(), userID(r), categoryID)
	case q.Get("since") != "":
		var since time.Time
		since, err = dayQuery(r, "since")
		if err != nil {
			http.Error(w, "invalid since date", http.StatusBadRequest)
			return
		}
		alerts, err = h.svc.AlertsSince(r.Context(), userID(r), since)
	default:
		alerts, err = h.svc.UnreadAlerts(r.Context(), userID(r))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *AlertHandler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadAlertCount(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"unread": n})
}

func (h *AlertHandler) generate(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.GenerateAll(r.Context(), userID(r), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"alerts_created": count})
}

func (h *AlertHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkRead(r.Context(), userID(r), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}
