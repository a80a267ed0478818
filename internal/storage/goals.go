package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g *core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, category_id, goal_name, description, target_amount_cents, current_amount_cents, target_date, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		g.UserID, nullCategory(g.CategoryID), g.Name, g.Description,
		g.TargetAmount.Cents, g.CurrentAmount.Cents, fmtDate(g.TargetDate), fmtTime(now))
	if err != nil {
		return fmt.Errorf("create savings goal: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("goal insert id: %w", err)
	}
	g.Active = true
	g.CreatedAt = now
	return nil
}

func (r *SQLiteRepository) GoalByID(ctx context.Context, userID, id int64) (*core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx, selectGoal+` WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if err != nil {
		return nil, fmt.Errorf("get savings goal %d: %w", id, notFound(err))
	}
	return &g, nil
}

func (r *SQLiteRepository) ActiveGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return r.queryGoals(ctx,
		selectGoal+` WHERE user_id = ? AND is_active = 1 ORDER BY target_date, id`, userID)
}

func (r *SQLiteRepository) CompletedGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return r.queryGoals(ctx,
		selectGoal+` WHERE user_id = ? AND is_active = 1 AND current_amount_cents >= target_amount_cents
		 ORDER BY target_date, id`, userID)
}

func (r *SQLiteRepository) OverdueGoals(ctx context.Context, userID int64, asOf time.Time) ([]core.SavingsGoal, error) {
	return r.queryGoals(ctx,
		selectGoal+` WHERE user_id = ? AND is_active = 1 AND current_amount_cents < target_amount_cents AND target_date < ?
		 ORDER BY target_date, id`, userID, fmtDate(asOf))
}

func (r *SQLiteRepository) GoalsByCategory(ctx context.Context, userID, categoryID int64) ([]core.SavingsGoal, error) {
	return r.queryGoals(ctx,
		selectGoal+` WHERE user_id = ? AND category_id = ? ORDER BY target_date, id`,
		userID, categoryID)
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g *core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals
		 SET category_id = ?, goal_name = ?, description = ?, target_amount_cents = ?, current_amount_cents = ?, target_date = ?
		 WHERE id = ? AND user_id = ?`,
		nullCategory(g.CategoryID), g.Name, g.Description,
		g.TargetAmount.Cents, g.CurrentAmount.Cents, fmtDate(g.TargetDate), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goal rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeactivateGoal(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate savings goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate goal rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AddGoalProgress bumps the saved amount in place and returns the updated
// goal. The delta may be negative for corrections; the stored amount is
// floored at zero.
func (r *SQLiteRepository) AddGoalProgress(ctx context.Context, userID, id int64, delta core.Money) (*core.SavingsGoal, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount_cents = MAX(0, current_amount_cents + ?)
		 WHERE id = ? AND user_id = ? AND is_active = 1`,
		delta.Cents, id, userID)
	if err != nil {
		return nil, fmt.Errorf("add goal progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("add goal progress rows: %w", err)
	}
	if n == 0 {
		return nil, core.ErrNotFound
	}
	return r.GoalByID(ctx, userID, id)
}

const selectGoal = `SELECT id, user_id, category_id, goal_name, description, target_amount_cents, current_amount_cents, target_date, is_active, created_at
	 FROM savings_goals`

func (r *SQLiteRepository) queryGoals(ctx context.Context, query string, args ...any) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query savings goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanGoal(s rowScanner) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	var catID sql.NullInt64
	var targetDate, createdAt string
	if err := s.Scan(&g.ID, &g.UserID, &catID, &g.Name, &g.Description,
		&g.TargetAmount.Cents, &g.CurrentAmount.Cents, &targetDate, &g.Active, &createdAt); err != nil {
		return core.SavingsGoal{}, err
	}
	g.CategoryID = categoryPtr(catID)
	g.TargetDate = parseDate(targetDate)
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}
