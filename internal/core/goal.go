package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SavingsGoal carries its derived state as methods rather than stored
// columns: completion, overdue, and pace are always computed against the
// evaluation time the caller passes in.
type SavingsGoal struct {
	ID            int64
	UserID        int64
	CategoryID    *int64
	Name          string
	Description   string
	TargetAmount  Money
	CurrentAmount Money
	TargetDate    time.Time
	Active        bool
	CreatedAt     time.Time
}

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.TargetDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (g SavingsGoal) Completed() bool {
	return g.CurrentAmount.Cents >= g.TargetAmount.Cents
}

func (g SavingsGoal) Overdue(now time.Time) bool {
	return StartOfDay(now).After(StartOfDay(g.TargetDate)) && !g.Completed()
}

// Progress returns the percentage of the target reached.
func (g SavingsGoal) Progress() float64 {
	return PercentOf(g.CurrentAmount, g.TargetAmount)
}

// Remaining is the amount still to save, never negative.
func (g SavingsGoal) Remaining() Money {
	if g.Completed() {
		return Money{}
	}
	return g.TargetAmount.Sub(g.CurrentAmount)
}

// DaysRemaining counts days until the target date, zero once overdue.
func (g SavingsGoal) DaysRemaining(now time.Time) int {
	d := DaysBetween(now, g.TargetDate)
	if d < 0 {
		return 0
	}
	return d
}

// DailyRequired is the amount per day needed to reach the target on time.
// Zero once the target date has passed.
func (g SavingsGoal) DailyRequired(now time.Time) decimal.Decimal {
	days := g.DaysRemaining(now)
	if days <= 0 {
		return decimal.Zero
	}
	return g.Remaining().Decimal().Div(decimal.NewFromInt(int64(days)))
}

// DailyRate is the average amount saved per day since the goal was created,
// with the elapsed days floored at one.
func (g SavingsGoal) DailyRate(now time.Time) decimal.Decimal {
	days := DaysBetween(g.CreatedAt, now)
	if days < 1 {
		days = 1
	}
	return g.CurrentAmount.Decimal().Div(decimal.NewFromInt(int64(days)))
}
