package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   RecurrencePattern = "DAILY"
	Weekly  RecurrencePattern = "WEEKLY"
	Monthly RecurrencePattern = "MONTHLY"
	Yearly  RecurrencePattern = "YEARLY"
)

const (
	Income  EntryKind = "INCOME"
	Expense EntryKind = "EXPENSE"
)

// Alert types emitted by the rule engines.
const (
	AlertBudgetExceeded     = "BUDGET_EXCEEDED"
	AlertBudgetWarning      = "BUDGET_WARNING"
	AlertWeekendSpending    = "WEEKEND_SPENDING"
	AlertUnusualSpending    = "UNUSUAL_SPENDING"
	AlertGoalOverdue        = "SAVINGS_GOAL_OVERDUE"
	AlertGoalBehindSchedule = "SAVINGS_GOAL_BEHIND_SCHEDULE"
	AlertGoalCompleted      = "SAVINGS_GOAL_COMPLETED"
)

// Insight types. The first five come from the periodic generators, the rest
// from the advisor's heuristic pass.
const (
	InsightWeekendVsWeekday  = "WEEKEND_VS_WEEKDAY_SPENDING"
	InsightBudgetUtilization = "BUDGET_UTILIZATION"
	InsightSpendingTrend     = "SPENDING_TREND"
	InsightCategoryCompare   = "CATEGORY_COMPARISON"
	InsightDailyAverage      = "DAILY_AVERAGE"
	InsightWelcome           = "WELCOME"
	InsightTip               = "TIP"
	InsightSpendingPattern   = "SPENDING_PATTERN"
	InsightTopCategory       = "TOP_CATEGORY"
	InsightSavingsRate       = "SAVINGS_RATE"
)

type (
	RecurrencePattern string

	EntryKind string

	User struct {
		ID          int64
		ExternalID  string
		Email       string
		DisplayName string
		Active      bool
		CreatedAt   time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Budget    Money
		CreatedAt time.Time
	}

	// LedgerEntry is a single income or expense row. The kind tag carries the
	// sign; Amount is always positive.
	LedgerEntry struct {
		ID          int64
		UserID      int64
		CategoryID  *int64
		Kind        EntryKind
		Amount      Money
		Description string
		Date        time.Time
		Source      string // "manual" or "template"
		CreatedAt   time.Time
	}

	RecurringTemplate struct {
		ID          int64
		UserID      int64
		CategoryID  *int64
		Kind        EntryKind
		Amount      Money
		Description string
		NextDueDate time.Time
		Pattern     RecurrencePattern
		Active      bool
		CreatedAt   time.Time
	}

	Alert struct {
		ID           int64
		UserID       int64
		CategoryID   *int64
		Type         string
		Message      string
		Threshold    Money
		CurrentValue Money
		Read         bool
		CreatedAt    time.Time
	}

	Insight struct {
		ID           int64
		UserID       int64
		CategoryID   *int64
		Type         string
		Title        string
		Description  string
		Value        Money
		Percentage   float64
		Period       string
		CalculatedAt time.Time
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRecurrence = errors.New("invalid recurrence pattern")
	ErrInvalidKind       = errors.New("invalid entry kind")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidDate       = errors.New("invalid date")
)

func (p RecurrencePattern) Validate() error {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidRecurrence
	}
}

func (k EntryKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (e LedgerEntry) Validate() error {
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t RecurringTemplate) Validate() error {
	if err := t.Pattern.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.NextDueDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Due reports whether the template should fire on or before asOf.
func (t RecurringTemplate) Due(asOf time.Time) bool {
	return t.Active && !StartOfDay(t.NextDueDate).After(StartOfDay(asOf))
}

// NextOccurrence returns the due date one period after the current one.
// Month and year steps are calendar-aware: the day of month is clamped to the
// target month's last day, so Jan 31 advances to Feb 28 (or Feb 29 in a leap
// year) rather than overflowing into March.
func (t RecurringTemplate) NextOccurrence() (time.Time, error) {
	d := StartOfDay(t.NextDueDate)
	switch t.Pattern {
	case Daily:
		return d.AddDate(0, 0, 1), nil
	case Weekly:
		return d.AddDate(0, 0, 7), nil
	case Monthly:
		return addMonthsClamped(d, 1), nil
	case Yearly:
		return addMonthsClamped(d, 12), nil
	default:
		return time.Time{}, ErrInvalidRecurrence
	}
}

// Entry materializes a ledger entry from the template dated at the current
// due date. The caller persists it together with the advanced due date.
func (t RecurringTemplate) Entry() LedgerEntry {
	return LedgerEntry{
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Kind:        t.Kind,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        StartOfDay(t.NextDueDate),
		Source:      "template",
	}
}

func addMonthsClamped(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}
