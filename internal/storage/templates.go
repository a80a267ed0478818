package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (user_id, category_id, kind, amount_cents, description, next_due_date, recurrence, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		t.UserID, nullCategory(t.CategoryID), string(t.Kind), t.Amount.Cents,
		t.Description, fmtDate(t.NextDueDate), string(t.Pattern), fmtTime(now))
	if err != nil {
		return fmt.Errorf("create recurring template: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("template insert id: %w", err)
	}
	t.Active = true
	t.CreatedAt = now
	return nil
}

func (r *SQLiteRepository) TemplateByID(ctx context.Context, userID, id int64) (*core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx, selectTemplate+` WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("get template %d: %w", id, notFound(err))
	}
	return &t, nil
}

func (r *SQLiteRepository) ActiveTemplatesForUser(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		selectTemplate+` WHERE user_id = ? AND is_active = 1 ORDER BY next_due_date, id`, userID)
}

func (r *SQLiteRepository) TemplatesByKind(ctx context.Context, userID int64, kind core.EntryKind) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		selectTemplate+` WHERE user_id = ? AND kind = ? AND is_active = 1 ORDER BY next_due_date, id`,
		userID, string(kind))
}

func (r *SQLiteRepository) TemplatesByPattern(ctx context.Context, userID int64, pattern core.RecurrencePattern) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		selectTemplate+` WHERE user_id = ? AND recurrence = ? ORDER BY next_due_date, id`,
		userID, string(pattern))
}

func (r *SQLiteRepository) TemplatesByCategory(ctx context.Context, userID, categoryID int64) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		selectTemplate+` WHERE user_id = ? AND category_id = ? ORDER BY next_due_date, id`,
		userID, categoryID)
}

// DueTemplates returns every active template across all users whose next due
// date is on or before asOf.
func (r *SQLiteRepository) DueTemplates(ctx context.Context, asOf time.Time) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		selectTemplate+` WHERE is_active = 1 AND next_due_date <= ? ORDER BY next_due_date, id`,
		fmtDate(asOf))
}

func (r *SQLiteRepository) DueTemplatesForUser(ctx context.Context, userID int64, asOf time.Time) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		selectTemplate+` WHERE user_id = ? AND is_active = 1 AND next_due_date <= ? ORDER BY next_due_date, id`,
		userID, fmtDate(asOf))
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates
		 SET category_id = ?, kind = ?, amount_cents = ?, description = ?, next_due_date = ?, recurrence = ?
		 WHERE id = ? AND user_id = ?`,
		nullCategory(t.CategoryID), string(t.Kind), t.Amount.Cents, t.Description,
		fmtDate(t.NextDueDate), string(t.Pattern), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeactivateTemplate soft-deletes; template rows are never removed while a
// ledger entry may reference them.
func (r *SQLiteRepository) DeactivateTemplate(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate template rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// MaterializeDueTemplate writes the ledger entry and the advanced due date in
// one transaction, so a crash cannot leave a fired template that still looks
// due or an advanced template with no entry.
func (r *SQLiteRepository) MaterializeDueTemplate(ctx context.Context, entry *core.LedgerEntry, templateID int64, nextDue time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin materialize tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if entry.Source == "" {
		entry.Source = "template"
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, category_id, kind, amount_cents, description, entry_date, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, nullCategory(entry.CategoryID), string(entry.Kind), entry.Amount.Cents,
		entry.Description, fmtDate(entry.Date), entry.Source, fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert materialized entry: %w", err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("materialized entry id: %w", err)
	}
	entry.CreatedAt = now

	upd, err := tx.ExecContext(ctx,
		`UPDATE recurring_templates SET next_due_date = ? WHERE id = ?`,
		fmtDate(nextDue), templateID)
	if err != nil {
		return fmt.Errorf("advance template due date: %w", err)
	}
	n, err := upd.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance template rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit materialize tx: %w", err)
	}

	slog.InfoContext(ctx, "Materialized recurring template",
		"template_id", templateID,
		"entry_id", entry.ID,
		"user_id", entry.UserID,
		"entry_date", fmtDate(entry.Date),
		"next_due_date", fmtDate(nextDue))
	return nil
}

const selectTemplate = `SELECT id, user_id, category_id, kind, amount_cents, description, next_due_date, recurrence, is_active, created_at
	 FROM recurring_templates`

func (r *SQLiteRepository) queryTemplates(ctx context.Context, query string, args ...any) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func scanTemplate(s rowScanner) (core.RecurringTemplate, error) {
	var t core.RecurringTemplate
	var catID sql.NullInt64
	var kind, nextDue, pattern, createdAt string
	if err := s.Scan(&t.ID, &t.UserID, &catID, &kind, &t.Amount.Cents,
		&t.Description, &nextDue, &pattern, &t.Active, &createdAt); err != nil {
		return core.RecurringTemplate{}, err
	}
	t.CategoryID = categoryPtr(catID)
	t.Kind = core.EntryKind(kind)
	t.NextDueDate = parseDate(nextDue)
	t.Pattern = core.RecurrencePattern(pattern)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}
