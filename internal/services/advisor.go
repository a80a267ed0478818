package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// AdvisorReader loads the raw ledger rows the heuristics group in memory.
type AdvisorReader interface {
	EntriesForUser(ctx context.Context, userID int64) ([]core.LedgerEntry, error)
	CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error)
}

// Advisor produces the narrative insight batch served by GetLatest. It is a
// formatting layer over ledger aggregates; nothing here calls out of process.
type Advisor struct {
	store  InsightStore
	ledger AdvisorReader
}

func NewAdvisor(store InsightStore, ledger AdvisorReader) *Advisor {
	return &Advisor{store: store, ledger: ledger}
}

// Generate builds and persists the heuristic batch for one user. A user with
// no ledger history gets the onboarding pair instead.
func (a *Advisor) Generate(ctx context.Context, userID int64, now time.Time) ([]core.Insight, error) {
	entries, err := a.ledger.EntriesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get ledger entries: %w", err)
	}

	var insights []core.Insight
	if len(entries) == 0 {
		insights = a.welcomeBatch(userID, now)
	} else {
		insights = append(insights, a.spendingPattern(entries, userID, now)...)
		insights = append(insights, a.topCategory(ctx, entries, userID, now)...)
		insights = append(insights, a.monthlyTrend(entries, userID, now)...)
		insights = append(insights, a.overallBudget(ctx, entries, userID, now)...)
		insights = append(insights, a.savingsRate(entries, userID, now)...)
	}

	for i := range insights {
		if err := a.store.CreateInsight(ctx, &insights[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to save advisor insight",
				"insight_type", insights[i].Type,
				"user_id", userID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Generated advisor insights",
		"user_id", userID,
		"count", len(insights))
	return insights, nil
}

func (a *Advisor) welcomeBatch(userID int64, now time.Time) []core.Insight {
	return []core.Insight{
		{
			UserID:       userID,
			Type:         core.InsightWelcome,
			Title:        "Welcome to Your Financial Journey!",
			Description:  "Start tracking your expenses to get personalized insights and improve your financial health.",
			Period:       "current",
			CalculatedAt: now,
		},
		{
			UserID:       userID,
			Type:         core.InsightTip,
			Title:        "Pro Tip: Categorize Your Expenses",
			Description:  "Categorizing your expenses helps identify spending patterns and areas for improvement.",
			Period:       "current",
			CalculatedAt: now,
		},
	}
}

// spendingPattern names the weekday that carries the most expense volume.
func (a *Advisor) spendingPattern(entries []core.LedgerEntry, userID int64, now time.Time) []core.Insight {
	byWeekday := map[time.Weekday]core.Money{}
	for _, e := range entries {
		if e.Kind != core.Expense {
			continue
		}
		byWeekday[e.Date.Weekday()] = byWeekday[e.Date.Weekday()].Add(e.Amount)
	}
	if len(byWeekday) == 0 {
		return nil
	}

	var topDay time.Weekday
	var topAmount core.Money
	first := true
	for day := time.Sunday; day <= time.Saturday; day++ {
		amount, ok := byWeekday[day]
		if !ok {
			continue
		}
		if first || amount.GreaterThan(topAmount) {
			topDay = day
			topAmount = amount
			first = false
		}
	}

	return []core.Insight{{
		UserID: userID,
		Type:   core.InsightSpendingPattern,
		Title:  "Your Highest Spending Day",
		Description: fmt.Sprintf("You spend the most on %s, averaging %.2f per transaction.",
			topDay.String(), topAmount.Units()),
		Value:        topAmount,
		Period:       "weekly",
		CalculatedAt: now,
	}}
}

// topCategory names the category with the largest expense share.
func (a *Advisor) topCategory(ctx context.Context, entries []core.LedgerEntry, userID int64, now time.Time) []core.Insight {
	byCategory := map[int64]core.Money{}
	var total core.Money
	for _, e := range entries {
		if e.Kind != core.Expense || e.CategoryID == nil {
			continue
		}
		byCategory[*e.CategoryID] = byCategory[*e.CategoryID].Add(e.Amount)
		total = total.Add(e.Amount)
	}
	if len(byCategory) == 0 || !total.IsPositive() {
		return nil
	}

	var topID int64
	var topAmount core.Money
	for id, amount := range byCategory {
		if amount.GreaterThan(topAmount) || topAmount.IsZero() {
			topID = id
			topAmount = amount
		}
	}

	name := fmt.Sprintf("Category %d", topID)
	if categories, err := a.ledger.CategoriesForUser(ctx, userID); err == nil {
		for _, c := range categories {
			if c.ID == topID {
				name = c.Name
				break
			}
		}
	}

	share := core.PercentOf(topAmount, total)
	return []core.Insight{{
		UserID:     userID,
		CategoryID: &topID,
		Type:       core.InsightTopCategory,
		Title:      "Your Biggest Expense Category",
		Description: fmt.Sprintf("%s accounts for %.1f%% of your total spending at %.2f",
			name, share, topAmount.Units()),
		Value:        topAmount,
		Percentage:   share,
		Period:       "current",
		CalculatedAt: now,
	}}
}

// monthlyTrend compares this calendar month's spending against the previous
// month's, skipped when the previous month saw none.
func (a *Advisor) monthlyTrend(entries []core.LedgerEntry, userID int64, now time.Time) []core.Insight {
	thisStart := core.StartOfMonth(now)
	prevStart := thisStart.AddDate(0, -1, 0)

	var thisMonth, prevMonth core.Money
	for _, e := range entries {
		if e.Kind != core.Expense {
			continue
		}
		d := core.StartOfDay(e.Date)
		switch {
		case !d.Before(thisStart):
			thisMonth = thisMonth.Add(e.Amount)
		case !d.Before(prevStart):
			prevMonth = prevMonth.Add(e.Amount)
		}
	}
	if !prevMonth.IsPositive() {
		return nil
	}

	change := core.PercentChange(thisMonth, prevMonth)
	trend := "decreased"
	if change > 0 {
		trend = "increased"
	}
	abs := change
	if abs < 0 {
		abs = -abs
	}
	return []core.Insight{{
		UserID:       userID,
		Type:         core.InsightSpendingTrend,
		Title:        "Monthly Spending Trend",
		Description:  fmt.Sprintf("Your spending has %s by %.1f%% compared to last month", trend, abs),
		Value:        thisMonth,
		Percentage:   change,
		Period:       "monthly",
		CalculatedAt: now,
	}}
}

// overallBudget reports total spending against the sum of category budgets.
func (a *Advisor) overallBudget(ctx context.Context, entries []core.LedgerEntry, userID int64, now time.Time) []core.Insight {
	categories, err := a.ledger.CategoriesForUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load categories for budget insight",
			"user_id", userID,
			"error", err)
		return nil
	}

	var totalBudget core.Money
	for _, c := range categories {
		if c.Budget.IsPositive() {
			totalBudget = totalBudget.Add(c.Budget)
		}
	}
	if !totalBudget.IsPositive() {
		return nil
	}

	var totalSpending core.Money
	for _, e := range entries {
		if e.Kind == core.Expense {
			totalSpending = totalSpending.Add(e.Amount)
		}
	}

	utilization := core.PercentOf(totalSpending, totalBudget)
	return []core.Insight{{
		UserID:       userID,
		Type:         core.InsightBudgetUtilization,
		Title:        "Overall Budget Status",
		Description:  fmt.Sprintf("You've used %.1f%% of your total budget", utilization),
		Value:        totalSpending,
		Percentage:   utilization,
		Period:       "current",
		CalculatedAt: now,
	}}
}

// savingsRate looks at the trailing thirty days of income and expense. A
// positive rate earns praise, a negative one a warning.
func (a *Advisor) savingsRate(entries []core.LedgerEntry, userID int64, now time.Time) []core.Insight {
	windowStart := core.StartOfDay(now).AddDate(0, 0, -30)

	var income, expense core.Money
	for _, e := range entries {
		if core.StartOfDay(e.Date).Before(windowStart) {
			continue
		}
		switch e.Kind {
		case core.Income:
			income = income.Add(e.Amount)
		case core.Expense:
			expense = expense.Add(e.Amount)
		}
	}
	if !income.IsPositive() {
		return nil
	}

	saved := income.Sub(expense)
	rate := core.PercentOf(saved, income)
	if rate > 0 {
		return []core.Insight{{
			UserID:       userID,
			Type:         core.InsightSavingsRate,
			Title:        "Your Savings Rate",
			Description:  fmt.Sprintf("You're saving %.1f%% of your income - great job!", rate),
			Value:        saved,
			Percentage:   rate,
			Period:       "current",
			CalculatedAt: now,
		}}
	}
	deficit := expense.Sub(income)
	abs := rate
	if abs < 0 {
		abs = -abs
	}
	return []core.Insight{{
		UserID:       userID,
		Type:         core.InsightSavingsRate,
		Title:        "Spending More Than Income",
		Description:  "You're spending more than you earn. Consider reviewing your expenses.",
		Value:        deficit,
		Percentage:   abs,
		Period:       "current",
		CalculatedAt: now,
	}}
}
