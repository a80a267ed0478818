package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// TemplateStore is the slice of the repository the processor needs.
type TemplateStore interface {
	DueTemplates(ctx context.Context, asOf time.Time) ([]core.RecurringTemplate, error)
	DueTemplatesForUser(ctx context.Context, userID int64, asOf time.Time) ([]core.RecurringTemplate, error)
	MaterializeDueTemplate(ctx context.Context, entry *core.LedgerEntry, templateID int64, nextDue time.Time) error
	CreateTemplate(ctx context.Context, t *core.RecurringTemplate) error
	TemplateByID(ctx context.Context, userID, id int64) (*core.RecurringTemplate, error)
	ActiveTemplatesForUser(ctx context.Context, userID int64) ([]core.RecurringTemplate, error)
	TemplatesByKind(ctx context.Context, userID int64, kind core.EntryKind) ([]core.RecurringTemplate, error)
	TemplatesByPattern(ctx context.Context, userID int64, pattern core.RecurrencePattern) ([]core.RecurringTemplate, error)
	TemplatesByCategory(ctx context.Context, userID, categoryID int64) ([]core.RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, t *core.RecurringTemplate) error
	DeactivateTemplate(ctx context.Context, userID, id int64) error
}

// RecurringProcessor materializes due recurring templates into ledger entries.
type RecurringProcessor struct {
	store TemplateStore
}

func NewRecurringProcessor(store TemplateStore) *RecurringProcessor {
	return &RecurringProcessor{store: store}
}

// ProcessDue fires every active template across all users whose due date is
// on or before asOf. Each template advances one period per run; a template
// several periods behind catches up over successive runs.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := p.store.DueTemplates(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("get due templates: %w", err)
	}
	return p.materialize(ctx, due, asOf), nil
}

// ProcessDueForUser is ProcessDue scoped to one user, for manual triggering
// through the API.
func (p *RecurringProcessor) ProcessDueForUser(ctx context.Context, userID int64, asOf time.Time) (int, error) {
	due, err := p.store.DueTemplatesForUser(ctx, userID, asOf)
	if err != nil {
		return 0, fmt.Errorf("get due templates for user %d: %w", userID, err)
	}
	return p.materialize(ctx, due, asOf), nil
}

func (p *RecurringProcessor) materialize(ctx context.Context, due []core.RecurringTemplate, asOf time.Time) int {
	slog.InfoContext(ctx, "Processing due recurring templates",
		"total_due", len(due),
		"processing_date", asOf.Format("2006-01-02"))

	processed := 0
	for _, tpl := range due {
		next, err := tpl.NextOccurrence()
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with invalid recurrence",
				"template_id", tpl.ID,
				"user_id", tpl.UserID,
				"recurrence", string(tpl.Pattern),
				"error", err)
			continue
		}

		entry := tpl.Entry()
		if err := p.store.MaterializeDueTemplate(ctx, &entry, tpl.ID, next); err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring template",
				"template_id", tpl.ID,
				"user_id", tpl.UserID,
				"description", tpl.Description,
				"error", err)
			continue
		}

		processed++
	}

	slog.InfoContext(ctx, "Recurring template processing complete",
		"processed", processed,
		"total_due", len(due))
	return processed
}

// CreateTemplate validates and stores a new recurring template.
func (p *RecurringProcessor) CreateTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := p.store.CreateTemplate(ctx, t); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	slog.InfoContext(ctx, "Created recurring template",
		"template_id", t.ID,
		"user_id", t.UserID,
		"recurrence", string(t.Pattern),
		"next_due_date", t.NextDueDate.Format("2006-01-02"))
	return nil
}

func (p *RecurringProcessor) Template(ctx context.Context, userID, id int64) (*core.RecurringTemplate, error) {
	return p.store.TemplateByID(ctx, userID, id)
}

func (p *RecurringProcessor) ActiveTemplates(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	return p.store.ActiveTemplatesForUser(ctx, userID)
}

func (p *RecurringProcessor) TemplatesByKind(ctx context.Context, userID int64, kind core.EntryKind) ([]core.RecurringTemplate, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	return p.store.TemplatesByKind(ctx, userID, kind)
}

func (p *RecurringProcessor) TemplatesByPattern(ctx context.Context, userID int64, pattern core.RecurrencePattern) ([]core.RecurringTemplate, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	return p.store.TemplatesByPattern(ctx, userID, pattern)
}

func (p *RecurringProcessor) TemplatesByCategory(ctx context.Context, userID, categoryID int64) ([]core.RecurringTemplate, error) {
	return p.store.TemplatesByCategory(ctx, userID, categoryID)
}

func (p *RecurringProcessor) UpdateTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return p.store.UpdateTemplate(ctx, t)
}

func (p *RecurringProcessor) DeactivateTemplate(ctx context.Context, userID, id int64) error {
	return p.store.DeactivateTemplate(ctx, userID, id)
}
