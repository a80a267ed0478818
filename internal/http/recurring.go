package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type RecurringHandler struct {
	svc *services.RecurringProcessor
}

func NewRecurringHandler(svc *services.RecurringProcessor) *RecurringHandler {
	return &RecurringHandler{svc: svc}
}

func (h *RecurringHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
	r.Post("/process-due", h.processDue)
}

type templateResponse struct {
	ID          int64  `json:"id"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	NextDueDate string `json:"next_due_date"`
	Pattern     string `json:"pattern"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

func toTemplateResponse(t core.RecurringTemplate) templateResponse {
	return templateResponse{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		NextDueDate: t.NextDueDate.Format(time.DateOnly),
		Pattern:     string(t.Pattern),
		Active:      t.Active,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type templateRequest struct {
	CategoryID  *int64 `json:"category_id,omitempty"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	NextDueDate string `json:"next_due_date"`
	Pattern     string `json:"pattern"`
}

func (h *RecurringHandler) decode(r *http.Request) (core.RecurringTemplate, error) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.RecurringTemplate{}, err
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	due, err := time.Parse(time.DateOnly, req.NextDueDate)
	if err != nil {
		return core.RecurringTemplate{}, core.ErrInvalidDate
	}

	return core.RecurringTemplate{
		UserID:      userID(r),
		CategoryID:  req.CategoryID,
		Kind:        core.EntryKind(req.Kind),
		Amount:      amount,
		Description: req.Description,
		NextDueDate: due,
		Pattern:     core.RecurrencePattern(req.Pattern),
		Active:      true,
	}, nil
}

func (h *RecurringHandler) create(w http.ResponseWriter, r *http.Request) {
	t, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.CreateTemplate(r.Context(), &t); err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toTemplateResponse(t))
}

func (h *RecurringHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		templates []core.RecurringTemplate
		err       error
	)

	switch q := r.URL.Query(); {
	case q.Get("kind") != "":
		templates, err = h.svc.TemplatesByKind(r.Context(), userID(r), core.EntryKind(q.Get("kind")))
	case q.Get("pattern") != "":
		templates, err = h.svc.TemplatesByPattern(r.Context(), userID(r), core.RecurrencePattern(q.Get("pattern")))
	case q.Get("category") != "":
		var categoryID int64
		categoryID, err = strconv.ParseInt(q.Get("category"), 10, 64)
		if err != nil {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}
		templates, err = h.svc.TemplatesByCategory(r.Context(), userID(r), categoryID)
	default:
		templates, err = h.svc.ActiveTemplates(r.Context(), userID(r))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *RecurringHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	t, err := h.svc.Template(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toTemplateResponse(*t))
}

func (h *RecurringHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	t, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t.ID = id

	if err := h.svc.UpdateTemplate(r.Context(), &t); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.Template(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toTemplateResponse(*updated))
}

func (h *RecurringHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeactivateTemplate(r.Context(), userID(r), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecurringHandler) processDue(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.ProcessDueForUser(r.Context(), userID(r), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"entries_created": count})
}
