package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateInsight(ctx context.Context, i *core.Insight) error {
	now := time.Now().UTC()
	if i.CalculatedAt.IsZero() {
		i.CalculatedAt = now
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO insights (user_id, category_id, insight_type, title, description, value_cents, percentage, period, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.UserID, nullCategory(i.CategoryID), i.Type, i.Title, i.Description,
		i.Value.Cents, i.Percentage, i.Period, fmtTime(i.CalculatedAt))
	if err != nil {
		return fmt.Errorf("create insight: %w", err)
	}
	i.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insight insert id: %w", err)
	}
	return nil
}

// LatestInsights returns the most recent insights first. A limit of zero or
// below means no limit.
func (r *SQLiteRepository) LatestInsights(ctx context.Context, userID int64, limit int) ([]core.Insight, error) {
	if limit > 0 {
		return r.queryInsights(ctx,
			selectInsight+` WHERE user_id = ? ORDER BY calculated_at DESC, id DESC LIMIT ?`,
			userID, limit)
	}
	return r.queryInsights(ctx,
		selectInsight+` WHERE user_id = ? ORDER BY calculated_at DESC, id DESC`, userID)
}

func (r *SQLiteRepository) InsightsByType(ctx context.Context, userID int64, insightType string) ([]core.Insight, error) {
	return r.queryInsights(ctx,
		selectInsight+` WHERE user_id = ? AND insight_type = ? ORDER BY calculated_at DESC, id DESC`,
		userID, insightType)
}

func (r *SQLiteRepository) InsightsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Insight, error) {
	return r.queryInsights(ctx,
		selectInsight+` WHERE user_id = ? AND category_id = ? ORDER BY calculated_at DESC, id DESC`,
		userID, categoryID)
}

func (r *SQLiteRepository) InsightsSince(ctx context.Context, userID int64, since time.Time) ([]core.Insight, error) {
	return r.queryInsights(ctx,
		selectInsight+` WHERE user_id = ? AND calculated_at >= ? ORDER BY calculated_at DESC, id DESC`,
		userID, fmtTime(since))
}

const selectInsight = `SELECT id, user_id, category_id, insight_type, title, description, value_cents, percentage, period, calculated_at
	 FROM insights`

func (r *SQLiteRepository) queryInsights(ctx context.Context, query string, args ...any) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var insights []core.Insight
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insights = append(insights, i)
	}
	return insights, rows.Err()
}

func scanInsight(s rowScanner) (core.Insight, error) {
	var i core.Insight
	var catID sql.NullInt64
	var calculatedAt string
	if err := s.Scan(&i.ID, &i.UserID, &catID, &i.Type, &i.Title, &i.Description,
		&i.Value.Cents, &i.Percentage, &i.Period, &calculatedAt); err != nil {
		return core.Insight{}, err
	}
	i.CategoryID = categoryPtr(catID)
	i.CalculatedAt = parseTime(calculatedAt)
	return i, nil
}
