package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e *core.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if e.Source == "" {
		e.Source = "manual"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, category_id, kind, amount_cents, description, entry_date, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, nullCategory(e.CategoryID), string(e.Kind), e.Amount.Cents,
		e.Description, fmtDate(e.Date), e.Source, fmtTime(now))
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ledger entry insert id: %w", err)
	}
	e.CreatedAt = now

	slog.InfoContext(ctx, "Ledger entry saved",
		"id", e.ID,
		"user_id", e.UserID,
		"kind", e.Kind,
		"amount_cents", e.Amount.Cents,
		"entry_date", fmtDate(e.Date))
	return nil
}

func (r *SQLiteRepository) EntriesForUser(ctx context.Context, userID int64) ([]core.LedgerEntry, error) {
	return r.queryEntries(ctx,
		`SELECT id, user_id, category_id, kind, amount_cents, description, entry_date, source, created_at
		 FROM ledger_entries WHERE user_id = ? ORDER BY entry_date DESC, id DESC`, userID)
}

func (r *SQLiteRepository) EntriesInRange(ctx context.Context, userID int64, from, to time.Time) ([]core.LedgerEntry, error) {
	return r.queryEntries(ctx,
		`SELECT id, user_id, category_id, kind, amount_cents, description, entry_date, source, created_at
		 FROM ledger_entries
		 WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		 ORDER BY entry_date DESC, id DESC`,
		userID, fmtDate(from), fmtDate(to))
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		var catID sql.NullInt64
		var entryDate, createdAt, kind string
		if err := rows.Scan(&e.ID, &e.UserID, &catID, &kind, &e.Amount.Cents,
			&e.Description, &entryDate, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.CategoryID = categoryPtr(catID)
		e.Kind = core.EntryKind(kind)
		e.Date = parseDate(entryDate)
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExpenseTotalForCategory sums all-time expenses recorded under a category.
func (r *SQLiteRepository) ExpenseTotalForCategory(ctx context.Context, userID, categoryID int64) (core.Money, error) {
	return r.sumEntries(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		 WHERE user_id = ? AND category_id = ? AND kind = 'EXPENSE'`,
		userID, categoryID)
}

func (r *SQLiteRepository) ExpenseTotalInRange(ctx context.Context, userID int64, from, to time.Time) (core.Money, error) {
	return r.sumEntries(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		 WHERE user_id = ? AND kind = 'EXPENSE' AND entry_date >= ? AND entry_date <= ?`,
		userID, fmtDate(from), fmtDate(to))
}

func (r *SQLiteRepository) ExpenseTotalForCategoryInRange(ctx context.Context, userID, categoryID int64, from, to time.Time) (core.Money, error) {
	return r.sumEntries(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		 WHERE user_id = ? AND category_id = ? AND kind = 'EXPENSE' AND entry_date >= ? AND entry_date <= ?`,
		userID, categoryID, fmtDate(from), fmtDate(to))
}

func (r *SQLiteRepository) IncomeTotalInRange(ctx context.Context, userID int64, from, to time.Time) (core.Money, error) {
	return r.sumEntries(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		 WHERE user_id = ? AND kind = 'INCOME' AND entry_date >= ? AND entry_date <= ?`,
		userID, fmtDate(from), fmtDate(to))
}

func (r *SQLiteRepository) sumEntries(ctx context.Context, query string, args ...any) (core.Money, error) {
	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum ledger entries: %w", err)
	}
	return core.NewMoney(cents), nil
}
