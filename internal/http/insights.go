package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type InsightHandler struct {
	svc *services.InsightEngine
}

func NewInsightHandler(svc *services.InsightEngine) *InsightHandler {
	return &InsightHandler{svc: svc}
}

func (h *InsightHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/latest", h.latest)
	r.Post("/generate", h.generate)
}

type insightResponse struct {
	ID           int64   `json:"id"`
	CategoryID   *int64  `json:"category_id,omitempty"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ValueCents   int64   `json:"value_cents"`
	Percentage   float64 `json:"percentage"`
	Period       string  `json:"period"`
	CalculatedAt string  `json:"calculated_at"`
}

func toInsightResponse(i core.Insight) insightResponse {
	return insightResponse{
		ID:           i.ID,
		CategoryID:   i.CategoryID,
		Type:         i.Type,
		Title:        i.Title,
		Description:  i.Description,
		ValueCents:   i.Value.Cents,
		Percentage:   i.Percentage,
		Period:       i.Period,
		CalculatedAt: i.CalculatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *InsightHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		insights []core.Insight
		err      error
	)

	switch q := r.URL.Query(); {
	case q.Get("type") != "":
		insights, err = h.svc.InsightsByType(r.Context(), userID(r), q.Get("type"))
	case q.Get("category") != "":
		var categoryID int64
		categoryID, err = strconv.ParseInt(q.Get("category"), 10, 64)
		if err != nil {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		insights, err = h.svc.InsightsByCategory(r.Context(), userID(r), categoryID)
	case q.Get("since") != "":
		var since time.Time
		since, err = dayQuery(r, "since")
		if err != nil {
			http.Error(w, "invalid since date", http.StatusBadRequest)
			return
		}
		insights, err = h.svc.InsightsSince(r.Context(), userID(r), since)
	default:
		insights, err = h.svc.GetLatest(r.Context(), userID(r), 0, time.Now())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toInsightResponses(insights))
}

// latest serves the cached batch and regenerates through the advisor when the
// history has gone stale.
func (h *InsightHandler) latest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	insights, err := h.svc.GetLatest(r.Context(), userID(r), limit, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toInsightResponses(insights))
}

func (h *InsightHandler) generate(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.GenerateAll(r.Context(), userID(r), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"insights_created": count})
}

func toInsightResponses(insights []core.Insight) []insightResponse {
	out := make([]insightResponse, 0, len(insights))
	for _, i := range insights {
		out = append(out, toInsightResponse(i))
	}
	return out
}
