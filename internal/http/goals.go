package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type GoalHandler struct {
	svc *services.GoalMonitor
}

func NewGoalHandler(svc *services.GoalMonitor) *GoalHandler {
	return &GoalHandler{svc: svc}
}

func (h *GoalHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/totals", h.totals)
	r.Post("/check", h.check)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
	r.Post("/{id}/progress", h.addProgress)
}

type goalResponse struct {
	ID                 int64   `json:"id"`
	CategoryID         *int64  `json:"category_id,omitempty"`
	Name               string  `json:"name"`
	Description        string  `json:"description,omitempty"`
	TargetAmountCents  int64   `json:"target_amount_cents"`
	CurrentAmountCents int64   `json:"current_amount_cents"`
	TargetDate         string  `json:"target_date"`
	ProgressPct        float64 `json:"progress_pct"`
	Completed          bool    `json:"completed"`
	Active             bool    `json:"active"`
	CreatedAt          string  `json:"created_at"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	return goalResponse{
		ID:                 g.ID,
		CategoryID:         g.CategoryID,
		Name:               g.Name,
		Description:        g.Description,
		TargetAmountCents:  g.TargetAmount.Cents,
		CurrentAmountCents: g.CurrentAmount.Cents,
		TargetDate:         g.TargetDate.Format(time.DateOnly),
		ProgressPct:        g.Progress(),
		Completed:          g.Completed(),
		Active:             g.Active,
		CreatedAt:          g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type goalRequest struct {
	CategoryID   *int64 `json:"category_id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TargetAmount string `json:"target_amount"`
	TargetDate   string `json:"target_date"`
}

func (h *GoalHandler) decode(r *http.Request) (core.SavingsGoal, error) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.SavingsGoal{}, err
	}

	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	due, err := time.Parse(time.DateOnly, req.TargetDate)
	if err != nil {
		return core.SavingsGoal{}, core.ErrInvalidDate
	}

	return core.SavingsGoal{
		UserID:       userID(r),
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: target,
		TargetDate:   due,
		Active:       true,
	}, nil
}

func (h *GoalHandler) create(w http.ResponseWriter, r *http.Request) {
	g, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.CreateGoal(r.Context(), &g); err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toGoalResponse(g))
}

func (h *GoalHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		goals []core.SavingsGoal
		err   error
	)

	switch q := r.URL.Query(); {
	case q.Get("status") == "completed":
		goals, err = h.svc.CompletedGoals(r.Context(), userID(r))
	case q.Get("status") == "overdue":
		goals, err = h.svc.OverdueGoals(r.Context(), userID(r), time.Now())
	case q.Get("category") != "":
		var categoryID int64
		categoryID, err = strconv.ParseInt(q.Get("category"), 10, 64)
		if err != nil {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		goals, err = h.svc.GoalsByCategory(r.Context(), userID(r), categoryID)
	default:
		goals, err = h.svc.ActiveGoals(r.Context(), userID(r))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *GoalHandler) totals(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Totals(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"active_count":       t.ActiveCount,
		"completed_count":    t.CompletedCount,
		"total_saved_cents":  t.TotalSaved.Cents,
		"total_target_cents": t.TotalTarget.Cents,
		"progress_pct":       t.ProgressPct,
	})
}

// check runs both the pace rules and the completion rule, same as the nightly
// scheduler does.
func (h *GoalHandler) check(w http.ResponseWriter, r *http.Request) {
	created, err := h.svc.GenerateGoalAlerts(r.Context(), userID(r), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	completed, err := h.svc.CheckCompletion(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"alerts_created": created + completed})
}

func (h *GoalHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	g, err := h.svc.Goal(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toGoalResponse(*g))
}

func (h *GoalHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	existing, err := h.svc.Goal(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}
	g.ID = id
	// The request carries only the editable fields; saved progress stays.
	g.CurrentAmount = existing.CurrentAmount

	if err := h.svc.UpdateGoal(r.Context(), &g); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.Goal(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toGoalResponse(*updated))
}

func (h *GoalHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeactivateGoal(r.Context(), userID(r), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type progressRequest struct {
	Amount string `json:"amount"`
}

func (h *GoalHandler) addProgress(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Withdrawals come through as negative amounts. The parser only takes
	// unsigned values, so split the sign off first.
	raw := strings.TrimSpace(req.Amount)
	negative := strings.HasPrefix(raw, "-")
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(raw, "-"))
	if err != nil {
		writeError(w, core.ErrInvalidAmount)
		return
	}
	if negative {
		cents = -cents
	}

	g, err := h.svc.UpdateProgress(r.Context(), userID(r), id, core.NewMoney(cents))
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toGoalResponse(*g))
}
