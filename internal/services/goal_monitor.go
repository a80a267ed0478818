package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// GoalStore persists savings goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, g *core.SavingsGoal) error
	GoalByID(ctx context.Context, userID, id int64) (*core.SavingsGoal, error)
	ActiveGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	CompletedGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	OverdueGoals(ctx context.Context, userID int64, asOf time.Time) ([]core.SavingsGoal, error)
	GoalsByCategory(ctx context.Context, userID, categoryID int64) ([]core.SavingsGoal, error)
	UpdateGoal(ctx context.Context, g *core.SavingsGoal) error
	DeactivateGoal(ctx context.Context, userID, id int64) error
	AddGoalProgress(ctx context.Context, userID, id int64, delta core.Money) (*core.SavingsGoal, error)
}

// GoalTotals summarizes the active goals of one user.
type GoalTotals struct {
	ActiveCount    int64
	CompletedCount int64
	TotalSaved     core.Money
	TotalTarget    core.Money
	ProgressPct    float64
}

var pacePenalty = decimal.NewFromFloat(1.5)

// GoalMonitor watches savings goals and raises alerts through the alert
// engine when a goal is overdue, behind schedule, or completed.
type GoalMonitor struct {
	store  GoalStore
	alerts *AlertEngine
}

func NewGoalMonitor(store GoalStore, alerts *AlertEngine) *GoalMonitor {
	return &GoalMonitor{store: store, alerts: alerts}
}

// GenerateGoalAlerts raises one alert per overdue goal and one per active
// goal whose required daily saving exceeds 1.5 times its observed daily rate.
func (m *GoalMonitor) GenerateGoalAlerts(ctx context.Context, userID int64, now time.Time) (int, error) {
	overdue, err := m.store.OverdueGoals(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("get overdue goals: %w", err)
	}

	count := 0
	for _, goal := range overdue {
		alert := &core.Alert{
			UserID:     userID,
			CategoryID: goal.CategoryID,
			Type:       core.AlertGoalOverdue,
			Message: fmt.Sprintf("Your savings goal '%s' is overdue! You need %.2f more to reach your target of %.2f",
				goal.Name, goal.Remaining().Units(), goal.TargetAmount.Units()),
			Threshold:    goal.TargetAmount,
			CurrentValue: goal.CurrentAmount,
		}
		if err := m.alerts.CreateAlert(ctx, alert); err != nil {
			slog.ErrorContext(ctx, "Failed to create overdue goal alert",
				"goal_id", goal.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		count++
	}

	active, err := m.store.ActiveGoals(ctx, userID)
	if err != nil {
		return count, fmt.Errorf("get active goals: %w", err)
	}
	for _, goal := range active {
		if goal.Completed() || goal.DaysRemaining(now) <= 0 {
			continue
		}
		required := goal.DailyRequired(now)
		rate := goal.DailyRate(now)
		if !required.GreaterThan(rate.Mul(pacePenalty)) {
			continue
		}

		req, _ := required.Float64()
		alert := &core.Alert{
			UserID:     userID,
			CategoryID: goal.CategoryID,
			Type:       core.AlertGoalBehindSchedule,
			Message: fmt.Sprintf("Your savings goal '%s' is behind schedule. You need to save %.2f daily to reach your target",
				goal.Name, req),
			Threshold:    core.NewMoneyFromDecimal(required),
			CurrentValue: core.NewMoneyFromDecimal(rate),
		}
		if err := m.alerts.CreateAlert(ctx, alert); err != nil {
			slog.ErrorContext(ctx, "Failed to create behind-schedule goal alert",
				"goal_id", goal.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		count++
	}
	return count, nil
}

// CheckCompletion congratulates every active completed goal. Goals stay
// active until explicitly deactivated, so the alert repeats each run.
func (m *GoalMonitor) CheckCompletion(ctx context.Context, userID int64) (int, error) {
	active, err := m.store.ActiveGoals(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get active goals: %w", err)
	}

	count := 0
	for _, goal := range active {
		if !goal.Completed() {
			continue
		}
		alert := &core.Alert{
			UserID:     userID,
			CategoryID: goal.CategoryID,
			Type:       core.AlertGoalCompleted,
			Message: fmt.Sprintf("Congratulations! You've reached your savings goal '%s' of %.2f!",
				goal.Name, goal.TargetAmount.Units()),
			Threshold:    goal.TargetAmount,
			CurrentValue: goal.CurrentAmount,
		}
		if err := m.alerts.CreateAlert(ctx, alert); err != nil {
			slog.ErrorContext(ctx, "Failed to create goal completion alert",
				"goal_id", goal.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		count++
	}
	return count, nil
}

// UpdateProgress adds delta to the goal's saved amount and returns the
// updated goal.
func (m *GoalMonitor) UpdateProgress(ctx context.Context, userID, goalID int64, delta core.Money) (*core.SavingsGoal, error) {
	goal, err := m.store.AddGoalProgress(ctx, userID, goalID, delta)
	if err != nil {
		return nil, fmt.Errorf("update goal progress: %w", err)
	}
	slog.InfoContext(ctx, "Updated savings goal progress",
		"goal_id", goalID,
		"user_id", userID,
		"delta_cents", delta.Cents,
		"current_cents", goal.CurrentAmount.Cents)
	return goal, nil
}

// Totals aggregates the user's active goals into one progress summary.
func (m *GoalMonitor) Totals(ctx context.Context, userID int64) (GoalTotals, error) {
	active, err := m.store.ActiveGoals(ctx, userID)
	if err != nil {
		return GoalTotals{}, fmt.Errorf("get active goals: %w", err)
	}

	var t GoalTotals
	t.ActiveCount = int64(len(active))
	for _, goal := range active {
		t.TotalSaved = t.TotalSaved.Add(goal.CurrentAmount)
		t.TotalTarget = t.TotalTarget.Add(goal.TargetAmount)
		if goal.Completed() {
			t.CompletedCount++
		}
	}
	t.ProgressPct = core.PercentOf(t.TotalSaved, t.TotalTarget)
	return t, nil
}

func (m *GoalMonitor) CreateGoal(ctx context.Context, g *core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := m.store.CreateGoal(ctx, g); err != nil {
		return fmt.Errorf("create savings goal: %w", err)
	}
	slog.InfoContext(ctx, "Created savings goal",
		"goal_id", g.ID,
		"user_id", g.UserID,
		"target_cents", g.TargetAmount.Cents,
		"target_date", g.TargetDate.Format("2006-01-02"))
	return nil
}

func (m *GoalMonitor) Goal(ctx context.Context, userID, id int64) (*core.SavingsGoal, error) {
	return m.store.GoalByID(ctx, userID, id)
}

func (m *GoalMonitor) ActiveGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return m.store.ActiveGoals(ctx, userID)
}

func (m *GoalMonitor) CompletedGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return m.store.CompletedGoals(ctx, userID)
}

func (m *GoalMonitor) OverdueGoals(ctx context.Context, userID int64, asOf time.Time) ([]core.SavingsGoal, error) {
	return m.store.OverdueGoals(ctx, userID, asOf)
}

func (m *GoalMonitor) GoalsByCategory(ctx context.Context, userID, categoryID int64) ([]core.SavingsGoal, error) {
	return m.store.GoalsByCategory(ctx, userID, categoryID)
}

func (m *GoalMonitor) UpdateGoal(ctx context.Context, g *core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return m.store.UpdateGoal(ctx, g)
}

func (m *GoalMonitor) DeactivateGoal(ctx context.Context, userID, id int64) error {
	return m.store.DeactivateGoal(ctx, userID, id)
}
