package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateAlert(ctx context.Context, a *core.Alert) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (user_id, category_id, alert_type, message, threshold_cents, current_value_cents, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		a.UserID, nullCategory(a.CategoryID), a.Type, a.Message,
		a.Threshold.Cents, a.CurrentValue.Cents, fmtTime(now))
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("alert insert id: %w", err)
	}
	a.Read = false
	a.CreatedAt = now
	return nil
}

func (r *SQLiteRepository) UnreadAlerts(ctx context.Context, userID int64) ([]core.Alert, error) {
	return r.queryAlerts(ctx,
		selectAlert+` WHERE user_id = ? AND is_read = 0 ORDER BY created_at DESC, id DESC`, userID)
}

func (r *SQLiteRepository) UnreadAlertCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread alerts: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) AlertsByType(ctx context.Context, userID int64, alertType string) ([]core.Alert, error) {
	return r.queryAlerts(ctx,
		selectAlert+` WHERE user_id = ? AND alert_type = ? ORDER BY created_at DESC, id DESC`,
		userID, alertType)
}

func (r *SQLiteRepository) AlertsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Alert, error) {
	return r.queryAlerts(ctx,
		selectAlert+` WHERE user_id = ? AND category_id = ? ORDER BY created_at DESC, id DESC`,
		userID, categoryID)
}

func (r *SQLiteRepository) AlertsSince(ctx context.Context, userID int64, since time.Time) ([]core.Alert, error) {
	return r.queryAlerts(ctx,
		selectAlert+` WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC, id DESC`,
		userID, fmtTime(since))
}

func (r *SQLiteRepository) MarkAlertRead(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark alert read rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// MarkAllAlertsRead returns the number of alerts flipped.
func (r *SQLiteRepository) MarkAllAlertsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read rows: %w", err)
	}
	return n, nil
}

const selectAlert = `SELECT id, user_id, category_id, alert_type, message, threshold_cents, current_value_cents, is_read, created_at
	 FROM alerts`

func (r *SQLiteRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]core.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlert(s rowScanner) (core.Alert, error) {
	var a core.Alert
	var catID sql.NullInt64
	var createdAt string
	if err := s.Scan(&a.ID, &a.UserID, &catID, &a.Type, &a.Message,
		&a.Threshold.Cents, &a.CurrentValue.Cents, &a.Read, &createdAt); err != nil {
		return core.Alert{}, err
	}
	a.CategoryID = categoryPtr(catID)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}
