package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// AlertStore persists alerts and serves the read side.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *core.Alert) error
	UnreadAlerts(ctx context.Context, userID int64) ([]core.Alert, error)
	UnreadAlertCount(ctx context.Context, userID int64) (int64, error)
	AlertsByType(ctx context.Context, userID int64, alertType string) ([]core.Alert, error)
	AlertsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Alert, error)
	AlertsSince(ctx context.Context, userID int64, since time.Time) ([]core.Alert, error)
	MarkAlertRead(ctx context.Context, userID, id int64) error
	MarkAllAlertsRead(ctx context.Context, userID int64) (int64, error)
}

// SpendingReader is the ledger aggregate slice the alert rules evaluate.
type SpendingReader interface {
	CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error)
	ExpenseTotalForCategory(ctx context.Context, userID, categoryID int64) (core.Money, error)
	ExpenseTotalInRange(ctx context.Context, userID int64, from, to time.Time) (core.Money, error)
}

// AlertPublisher pushes a notification for each new alert. Implemented by the
// AMQP client; nil means notifications are disabled.
type AlertPublisher interface {
	PublishAlertNotification(ctx context.Context, a core.Alert) error
}

// AlertEngine evaluates the spending rules and appends alerts. Rules carry no
// dedup state: every evaluation that trips a threshold appends a fresh row.
type AlertEngine struct {
	store     AlertStore
	ledger    SpendingReader
	publisher AlertPublisher
}

func NewAlertEngine(store AlertStore, ledger SpendingReader, publisher AlertPublisher) *AlertEngine {
	return &AlertEngine{
		store:     store,
		ledger:    ledger,
		publisher: publisher,
	}
}

// GenerateBudgetAlerts checks every budgeted category against its all-time
// expense total. At or past the budget an exceeded alert fires; from 80%
// a warning fires instead.
func (e *AlertEngine) GenerateBudgetAlerts(ctx context.Context, userID int64) ([]core.Alert, error) {
	categories, err := e.ledger.CategoriesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}

	var created []core.Alert
	for _, cat := range categories {
		if !cat.Budget.IsPositive() {
			continue
		}
		spent, err := e.ledger.ExpenseTotalForCategory(ctx, userID, cat.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to total category spending",
				"category_id", cat.ID,
				"user_id", userID,
				"error", err)
			continue
		}

		utilization := core.PercentOf(spent, cat.Budget)
		var alert *core.Alert
		switch {
		case utilization >= 100:
			alert = &core.Alert{
				UserID:       userID,
				CategoryID:   &cat.ID,
				Type:         core.AlertBudgetExceeded,
				Message:      fmt.Sprintf("You've exceeded your %s budget by %.2f%%", cat.Name, utilization-100),
				Threshold:    cat.Budget,
				CurrentValue: spent,
			}
		case utilization >= 80:
			alert = &core.Alert{
				UserID:       userID,
				CategoryID:   &cat.ID,
				Type:         core.AlertBudgetWarning,
				Message:      fmt.Sprintf("You've used %.1f%% of your %s budget", utilization, cat.Name),
				Threshold:    cat.Budget,
				CurrentValue: spent,
			}
		default:
			continue
		}

		if err := e.CreateAlert(ctx, alert); err != nil {
			slog.ErrorContext(ctx, "Failed to create budget alert",
				"category_id", cat.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		created = append(created, *alert)
	}
	return created, nil
}

// GenerateWeekendAlert compares weekend against weekday spending within the
// current Monday-to-Sunday week. It fires when the weekend share exceeds half
// of the weekly total and both sides saw spending.
func (e *AlertEngine) GenerateWeekendAlert(ctx context.Context, userID int64, now time.Time) (*core.Alert, error) {
	weekStart := core.StartOfWeek(now)
	weekday, err := e.ledger.ExpenseTotalInRange(ctx, userID, weekStart, weekStart.AddDate(0, 0, 4))
	if err != nil {
		return nil, fmt.Errorf("total weekday spending: %w", err)
	}
	weekend, err := e.ledger.ExpenseTotalInRange(ctx, userID, weekStart.AddDate(0, 0, 5), weekStart.AddDate(0, 0, 6))
	if err != nil {
		return nil, fmt.Errorf("total weekend spending: %w", err)
	}

	if !weekday.IsPositive() || !weekend.IsPositive() {
		return nil, nil
	}
	share := core.PercentOf(weekend, weekday.Add(weekend))
	if share <= 50 {
		return nil, nil
	}

	alert := &core.Alert{
		UserID:       userID,
		Type:         core.AlertWeekendSpending,
		Message:      fmt.Sprintf("Your weekend spending is %.1f%% of your weekly spending", share),
		Threshold:    weekday,
		CurrentValue: weekend,
	}
	if err := e.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// GenerateUnusualSpendingAlert fires when today's spending is strictly more
// than double yesterday's, with yesterday positive. Exactly double stays
// quiet.
func (e *AlertEngine) GenerateUnusualSpendingAlert(ctx context.Context, userID int64, now time.Time) (*core.Alert, error) {
	today := core.StartOfDay(now)
	yesterday := today.AddDate(0, 0, -1)

	todaySpent, err := e.ledger.ExpenseTotalInRange(ctx, userID, today, today)
	if err != nil {
		return nil, fmt.Errorf("total today's spending: %w", err)
	}
	yesterdaySpent, err := e.ledger.ExpenseTotalInRange(ctx, userID, yesterday, yesterday)
	if err != nil {
		return nil, fmt.Errorf("total yesterday's spending: %w", err)
	}

	if !yesterdaySpent.IsPositive() || todaySpent.Cents <= yesterdaySpent.Cents*2 {
		return nil, nil
	}

	ratio, _ := decimal.NewFromInt(todaySpent.Cents).
		Div(decimal.NewFromInt(yesterdaySpent.Cents)).
		Float64()
	alert := &core.Alert{
		UserID: userID,
		Type:   core.AlertUnusualSpending,
		Message: fmt.Sprintf("Your spending today (%.2f) is %.1fx higher than yesterday (%.2f)",
			todaySpent.Units(), ratio, yesterdaySpent.Units()),
		Threshold:    yesterdaySpent,
		CurrentValue: todaySpent,
	}
	if err := e.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// GenerateAll runs every rule for one user. A failing rule is logged and does
// not stop the others; the joined error reports what failed.
func (e *AlertEngine) GenerateAll(ctx context.Context, userID int64, now time.Time) (int, error) {
	count := 0
	var errs []error

	budget, err := e.GenerateBudgetAlerts(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Budget alert rule failed", "user_id", userID, "error", err)
		errs = append(errs, fmt.Errorf("budget rule: %w", err))
	}
	count += len(budget)

	if a, err := e.GenerateWeekendAlert(ctx, userID, now); err != nil {
		slog.ErrorContext(ctx, "Weekend alert rule failed", "user_id", userID, "error", err)
		errs = append(errs, fmt.Errorf("weekend rule: %w", err))
	} else if a != nil {
		count++
	}

	if a, err := e.GenerateUnusualSpendingAlert(ctx, userID, now); err != nil {
		slog.ErrorContext(ctx, "Unusual spending rule failed", "user_id", userID, "error", err)
		errs = append(errs, fmt.Errorf("unusual spending rule: %w", err))
	} else if a != nil {
		count++
	}

	return count, errors.Join(errs...)
}

// CreateAlert stores the alert and then publishes a notification. Publish
// failures never fail the alert; the row is already committed.
func (e *AlertEngine) CreateAlert(ctx context.Context, a *core.Alert) error {
	if err := e.store.CreateAlert(ctx, a); err != nil {
		return fmt.Errorf("save alert: %w", err)
	}

	slog.InfoContext(ctx, "Created alert",
		"alert_id", a.ID,
		"user_id", a.UserID,
		"alert_type", a.Type)

	if e.publisher == nil {
		slog.WarnContext(ctx, "Alert publisher not available, skipping notification",
			"alert_id", a.ID)
		return nil
	}
	if err := e.publisher.PublishAlertNotification(ctx, *a); err != nil {
		slog.ErrorContext(ctx, "Failed to publish alert notification",
			"alert_id", a.ID,
			"error", err)
	}
	return nil
}

func (e *AlertEngine) UnreadAlerts(ctx context.Context, userID int64) ([]core.Alert, error) {
	return e.store.UnreadAlerts(ctx, userID)
}

func (e *AlertEngine) UnreadAlertCount(ctx context.Context, userID int64) (int64, error) {
	return e.store.UnreadAlertCount(ctx, userID)
}

func (e *AlertEngine) AlertsByType(ctx context.Context, userID int64, alertType string) ([]core.Alert, error) {
	return e.store.AlertsByType(ctx, userID, alertType)
}

func (e *AlertEngine) AlertsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Alert, error) {
	return e.store.AlertsByCategory(ctx, userID, categoryID)
}

func (e *AlertEngine) AlertsSince(ctx context.Context, userID int64, since time.Time) ([]core.Alert, error) {
	return e.store.AlertsSince(ctx, userID, since)
}

func (e *AlertEngine) MarkRead(ctx context.Context, userID, id int64) error {
	return e.store.MarkAlertRead(ctx, userID, id)
}

// MarkAllRead flips alerts unread at call time; rows created after the store
// call lands stay unread.
func (e *AlertEngine) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return e.store.MarkAllAlertsRead(ctx, userID)
}
