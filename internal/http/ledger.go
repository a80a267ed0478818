package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

// LedgerStore is the slice of the repository the ledger endpoints need.
type LedgerStore interface {
	CreateCategory(ctx context.Context, c *core.Category) error
	CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error)
	CategoryByID(ctx context.Context, userID, id int64) (*core.Category, error)
	UpdateCategoryBudget(ctx context.Context, userID, id int64, budget core.Money) error

	CreateEntry(ctx context.Context, e *core.LedgerEntry) error
	EntriesForUser(ctx context.Context, userID int64) ([]core.LedgerEntry, error)
	EntriesInRange(ctx context.Context, userID int64, from, to time.Time) ([]core.LedgerEntry, error)
}

type LedgerHandler struct {
	store LedgerStore
}

func NewLedgerHandler(store LedgerStore) *LedgerHandler {
	return &LedgerHandler{store: store}
}

func (h *LedgerHandler) CategoryRoutes(r chi.Router) {
	r.Post("/", h.createCategory)
	r.Get("/", h.listCategories)
	r.Put("/{id}/budget", h.updateBudget)
}

func (h *LedgerHandler) EntryRoutes(r chi.Router) {
	r.Post("/", h.createEntry)
	r.Get("/", h.listEntries)
}

type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	BudgetCents int64  `json:"budget_cents"`
	CreatedAt   string `json:"created_at"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		BudgetCents: c.Budget.Cents,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type createCategoryRequest struct {
	Name   string `json:"name"`
	Budget string `json:"budget,omitempty"`
}

func (h *LedgerHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c := core.Category{UserID: userID(r), Name: req.Name}
	if req.Budget != "" {
		budget, err := parseAmount(req.Budget)
		if err != nil {
			writeError(w, err)
			return
		}
		c.Budget = budget
	}

	if err := h.store.CreateCategory(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCategoryResponse(c))
}

func (h *LedgerHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.CategoriesForUser(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}

	respondJSON(w, http.StatusOK, out)
}

type updateBudgetRequest struct {
	Budget string `json:"budget"`
}

func (h *LedgerHandler) updateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	budget, err := parseAmount(req.Budget)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.UpdateCategoryBudget(r.Context(), userID(r), id, budget); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.store.CategoryByID(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCategoryResponse(*c))
}

type entryResponse struct {
	ID          int64  `json:"id"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	CreatedAt   string `json:"created_at"`
}

func toEntryResponse(e core.LedgerEntry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Kind:        string(e.Kind),
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		Date:        e.Date.Format(time.DateOnly),
		Source:      e.Source,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type createEntryRequest struct {
	CategoryID  *int64 `json:"category_id,omitempty"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (h *LedgerHandler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		writeError(w, core.ErrInvalidDate)
		return
	}

	e := core.LedgerEntry{
		UserID:      userID(r),
		CategoryID:  req.CategoryID,
		Kind:        core.EntryKind(req.Kind),
		Amount:      amount,
		Description: req.Description,
		Date:        date,
		Source:      "manual",
	}
	if err := e.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.CreateEntry(r.Context(), &e); err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toEntryResponse(e))
}

func (h *LedgerHandler) listEntries(w http.ResponseWriter, r *http.Request) {
	from, err := dayQuery(r, "from")
	if err != nil {
		http.Error(w, "invalid from date", http.StatusBadRequest)
		return
	}
	to, err := dayQuery(r, "to")
	if err != nil {
		http.Error(w, "invalid to date", http.StatusBadRequest)
		return
	}

	var entries []core.LedgerEntry
	if from.IsZero() && to.IsZero() {
		entries, err = h.store.EntriesForUser(r.Context(), userID(r))
	} else {
		if to.IsZero() {
			to = time.Now()
		}
		entries, err = h.store.EntriesInRange(r.Context(), userID(r), from, to)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}

	respondJSON(w, http.StatusOK, out)
}
