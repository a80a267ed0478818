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

// insightFreshness is how long a generated batch stays served as-is before
// GetLatest regenerates.
const insightFreshness = 24 * time.Hour

// InsightStore persists insights and serves the read side.
type InsightStore interface {
	CreateInsight(ctx context.Context, i *core.Insight) error
	LatestInsights(ctx context.Context, userID int64, limit int) ([]core.Insight, error)
	InsightsByType(ctx context.Context, userID int64, insightType string) ([]core.Insight, error)
	InsightsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Insight, error)
	InsightsSince(ctx context.Context, userID int64, since time.Time) ([]core.Insight, error)
}

// InsightReader is the ledger slice the periodic generators aggregate over.
type InsightReader interface {
	CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error)
	ExpenseTotalForCategory(ctx context.Context, userID, categoryID int64) (core.Money, error)
	ExpenseTotalForCategoryInRange(ctx context.Context, userID, categoryID int64, from, to time.Time) (core.Money, error)
	ExpenseTotalInRange(ctx context.Context, userID int64, from, to time.Time) (core.Money, error)
}

// InsightEngine computes the periodic analytical summaries. Each generator
// appends zero or one row per qualifying subject; history is never rewritten.
type InsightEngine struct {
	store   InsightStore
	ledger  InsightReader
	advisor *Advisor
}

func NewInsightEngine(store InsightStore, ledger InsightReader, advisor *Advisor) *InsightEngine {
	return &InsightEngine{
		store:   store,
		ledger:  ledger,
		advisor: advisor,
	}
}

// GenerateAll runs every periodic generator for one user. A failing generator
// is logged and does not stop the others.
func (e *InsightEngine) GenerateAll(ctx context.Context, userID int64, now time.Time) (int, error) {
	type generator struct {
		name string
		run  func(context.Context, int64, time.Time) (int, error)
	}
	generators := []generator{
		{"weekend_vs_weekday", e.generateWeekendVsWeekday},
		{"budget_utilization", e.generateBudgetUtilization},
		{"spending_trend", e.generateSpendingTrend},
		{"category_comparison", e.generateCategoryComparison},
		{"daily_average", e.generateDailyAverage},
	}

	count := 0
	var errs []error
	for _, g := range generators {
		n, err := g.run(ctx, userID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Insight generator failed",
				"generator", g.name,
				"user_id", userID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", g.name, err))
			continue
		}
		count += n
	}
	return count, errors.Join(errs...)
}

// generateWeekendVsWeekday compares weekend and weekday spending of the
// previous calendar week, skipped unless both sides saw spending.
func (e *InsightEngine) generateWeekendVsWeekday(ctx context.Context, userID int64, now time.Time) (int, error) {
	prevWeekStart := core.StartOfWeek(now).AddDate(0, 0, -7)
	weekday, err := e.ledger.ExpenseTotalInRange(ctx, userID, prevWeekStart, prevWeekStart.AddDate(0, 0, 4))
	if err != nil {
		return 0, fmt.Errorf("total weekday spending: %w", err)
	}
	weekend, err := e.ledger.ExpenseTotalInRange(ctx, userID, prevWeekStart.AddDate(0, 0, 5), prevWeekStart.AddDate(0, 0, 6))
	if err != nil {
		return 0, fmt.Errorf("total weekend spending: %w", err)
	}
	if !weekday.IsPositive() || !weekend.IsPositive() {
		return 0, nil
	}

	share := core.PercentOf(weekend, weekday.Add(weekend))
	insight := &core.Insight{
		UserID:       userID,
		Type:         core.InsightWeekendVsWeekday,
		Title:        "Weekend vs Weekday Spending",
		Description:  fmt.Sprintf("Your weekend spending is %.1f%% of your weekly spending", share),
		Value:        weekend,
		Percentage:   share,
		Period:       "Previous Week",
		CalculatedAt: now,
	}
	if err := e.store.CreateInsight(ctx, insight); err != nil {
		return 0, fmt.Errorf("save insight: %w", err)
	}
	return 1, nil
}

// generateBudgetUtilization writes one month-to-date utilization row per
// budgeted category.
func (e *InsightEngine) generateBudgetUtilization(ctx context.Context, userID int64, now time.Time) (int, error) {
	categories, err := e.ledger.CategoriesForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get categories: %w", err)
	}

	monthStart := core.StartOfMonth(now)
	count := 0
	for _, cat := range categories {
		if !cat.Budget.IsPositive() {
			continue
		}
		spent, err := e.ledger.ExpenseTotalForCategoryInRange(ctx, userID, cat.ID, monthStart, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to total category spending",
				"category_id", cat.ID,
				"user_id", userID,
				"error", err)
			continue
		}

		utilization := core.PercentOf(spent, cat.Budget)
		insight := &core.Insight{
			UserID:       userID,
			CategoryID:   &cat.ID,
			Type:         core.InsightBudgetUtilization,
			Title:        fmt.Sprintf("%s Budget Utilization", cat.Name),
			Description:  fmt.Sprintf("You've used %.1f%% of your %s budget", utilization, cat.Name),
			Value:        spent,
			Percentage:   utilization,
			Period:       "Current Month",
			CalculatedAt: now,
		}
		if err := e.store.CreateInsight(ctx, insight); err != nil {
			slog.ErrorContext(ctx, "Failed to save budget utilization insight",
				"category_id", cat.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		count++
	}
	return count, nil
}

// generateSpendingTrend compares the trailing seven days against the seven
// before them, skipped when the earlier window saw no spending.
func (e *InsightEngine) generateSpendingTrend(ctx context.Context, userID int64, now time.Time) (int, error) {
	today := core.StartOfDay(now)
	week1End := today.AddDate(0, 0, -1)
	week1Start := week1End.AddDate(0, 0, -6)
	week2End := week1Start.AddDate(0, 0, -1)
	week2Start := week2End.AddDate(0, 0, -6)

	thisWeek, err := e.ledger.ExpenseTotalInRange(ctx, userID, week1Start, week1End)
	if err != nil {
		return 0, fmt.Errorf("total trailing week: %w", err)
	}
	lastWeek, err := e.ledger.ExpenseTotalInRange(ctx, userID, week2Start, week2End)
	if err != nil {
		return 0, fmt.Errorf("total preceding week: %w", err)
	}
	if !lastWeek.IsPositive() {
		return 0, nil
	}

	change := core.PercentChange(thisWeek, lastWeek)
	trend := "decreased"
	if change > 0 {
		trend = "increased"
	}
	abs := change
	if abs < 0 {
		abs = -abs
	}
	insight := &core.Insight{
		UserID:       userID,
		Type:         core.InsightSpendingTrend,
		Title:        "Weekly Spending Trend",
		Description:  fmt.Sprintf("Your spending has %s by %.1f%% compared to last week", trend, abs),
		Value:        thisWeek,
		Percentage:   abs,
		Period:       "Weekly Comparison",
		CalculatedAt: now,
	}
	if err := e.store.CreateInsight(ctx, insight); err != nil {
		return 0, fmt.Errorf("save insight: %w", err)
	}
	return 1, nil
}

// generateCategoryComparison finds the category with the highest all-time
// spending and records its share of the total.
func (e *InsightEngine) generateCategoryComparison(ctx context.Context, userID int64, now time.Time) (int, error) {
	categories, err := e.ledger.CategoriesForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get categories: %w", err)
	}

	var top *core.Category
	var topSpent, total core.Money
	for _, cat := range categories {
		spent, err := e.ledger.ExpenseTotalForCategory(ctx, userID, cat.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to total category spending",
				"category_id", cat.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		total = total.Add(spent)
		if top == nil || spent.GreaterThan(topSpent) {
			top = &cat
			topSpent = spent
		}
	}
	if top == nil || !total.IsPositive() {
		return 0, nil
	}

	share := core.PercentOf(topSpent, total)
	insight := &core.Insight{
		UserID:       userID,
		CategoryID:   &top.ID,
		Type:         core.InsightCategoryCompare,
		Title:        "Top Spending Category",
		Description:  fmt.Sprintf("%s is your highest spending category at %.1f%% of total expenses", top.Name, share),
		Value:        topSpent,
		Percentage:   share,
		Period:       "Current Month",
		CalculatedAt: now,
	}
	if err := e.store.CreateInsight(ctx, insight); err != nil {
		return 0, fmt.Errorf("save insight: %w", err)
	}
	return 1, nil
}

// generateDailyAverage divides month-to-date spending by the days elapsed,
// the first of the month counting as one.
func (e *InsightEngine) generateDailyAverage(ctx context.Context, userID int64, now time.Time) (int, error) {
	monthStart := core.StartOfMonth(now)
	spent, err := e.ledger.ExpenseTotalInRange(ctx, userID, monthStart, now)
	if err != nil {
		return 0, fmt.Errorf("total month-to-date spending: %w", err)
	}

	days := core.DaysBetween(monthStart, now) + 1
	avg := spent.Decimal().Div(decimal.NewFromInt(int64(days)))
	avgf, _ := avg.Float64()
	insight := &core.Insight{
		UserID:       userID,
		Type:         core.InsightDailyAverage,
		Title:        "Daily Average Spending",
		Description:  fmt.Sprintf("Your average daily spending this month is %.2f", avgf),
		Value:        core.NewMoneyFromDecimal(avg),
		Period:       "Current Month",
		CalculatedAt: now,
	}
	if err := e.store.CreateInsight(ctx, insight); err != nil {
		return 0, fmt.Errorf("save insight: %w", err)
	}
	return 1, nil
}

// GetLatest serves the most recent insights. When none exist yet, or the
// fetched batch has gone stale, it regenerates through the advisor and
// returns the fresh rows instead.
func (e *InsightEngine) GetLatest(ctx context.Context, userID int64, limit int, now time.Time) ([]core.Insight, error) {
	existing, err := e.store.LatestInsights(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get latest insights: %w", err)
	}
	if len(existing) > 0 && !e.stale(existing, now) {
		return existing, nil
	}
	return e.advisor.Generate(ctx, userID, now)
}

func (e *InsightEngine) stale(insights []core.Insight, now time.Time) bool {
	oldest := insights[0].CalculatedAt
	for _, i := range insights[1:] {
		if i.CalculatedAt.Before(oldest) {
			oldest = i.CalculatedAt
		}
	}
	return now.Sub(oldest) > insightFreshness
}

func (e *InsightEngine) InsightsByType(ctx context.Context, userID int64, insightType string) ([]core.Insight, error) {
	return e.store.InsightsByType(ctx, userID, insightType)
}

func (e *InsightEngine) InsightsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Insight, error) {
	return e.store.InsightsByCategory(ctx, userID, categoryID)
}

func (e *InsightEngine) InsightsSince(ctx context.Context, userID int64, since time.Time) ([]core.Insight, error) {
	return e.store.InsightsSince(ctx, userID, since)
}
