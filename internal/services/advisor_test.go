package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestAdvisorWelcomesNewUser(t *testing.T) {
	store := newFakeStore()
	advisor := NewAdvisor(store, store)

	got, err := advisor.Generate(context.Background(), 1, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.InsightWelcome, got[0].Type)
	assert.Equal(t, core.InsightTip, got[1].Type)
	assert.Len(t, store.insights, 2)
}

func TestAdvisorSavingsRateSign(t *testing.T) {
	now := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

	t.Run("positive rate praises", func(t *testing.T) {
		store := newFakeStore()
		store.addIncome(1, 200000, now.AddDate(0, 0, -10))
		store.addExpense(1, nil, 150000, now.AddDate(0, 0, -5))

		advisor := NewAdvisor(store, store)
		got, err := advisor.Generate(context.Background(), 1, now)
		require.NoError(t, err)

		rows := insightsOfType(got, core.InsightSavingsRate)
		require.Len(t, rows, 1)
		assert.Equal(t, "Your Savings Rate", rows[0].Title)
		assert.InDelta(t, 25.0, rows[0].Percentage, 0.001)
		assert.Equal(t, int64(50000), rows[0].Value.Cents)
	})

	t.Run("negative rate warns", func(t *testing.T) {
		store := newFakeStore()
		store.addIncome(1, 100000, now.AddDate(0, 0, -10))
		store.addExpense(1, nil, 150000, now.AddDate(0, 0, -5))

		advisor := NewAdvisor(store, store)
		got, err := advisor.Generate(context.Background(), 1, now)
		require.NoError(t, err)

		rows := insightsOfType(got, core.InsightSavingsRate)
		require.Len(t, rows, 1)
		assert.Equal(t, "Spending More Than Income", rows[0].Title)
		assert.Equal(t, int64(50000), rows[0].Value.Cents)
	})

	t.Run("no income skips", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 150000, now.AddDate(0, 0, -5))

		advisor := NewAdvisor(store, store)
		got, err := advisor.Generate(context.Background(), 1, now)
		require.NoError(t, err)
		assert.Empty(t, insightsOfType(got, core.InsightSavingsRate))
	})
}

func TestAdvisorSpendingPattern(t *testing.T) {
	// Mar 7 2026 is a Saturday, Mar 9 a Monday.
	saturday := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.addExpense(1, nil, 30000, saturday)
	store.addExpense(1, nil, 10000, monday)

	advisor := NewAdvisor(store, store)
	got, err := advisor.Generate(context.Background(), 1, monday.AddDate(0, 0, 2))
	require.NoError(t, err)

	rows := insightsOfType(got, core.InsightSpendingPattern)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Description, "Saturday")
	assert.Equal(t, int64(30000), rows[0].Value.Cents)
}

func TestAdvisorMonthlyTrend(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.addExpense(1, nil, 10000, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	store.addExpense(1, nil, 8000, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC))

	advisor := NewAdvisor(store, store)
	got, err := advisor.Generate(context.Background(), 1, now)
	require.NoError(t, err)

	rows := insightsOfType(got, core.InsightSpendingTrend)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Description, "decreased")
	assert.Contains(t, rows[0].Description, "20.0%")
}

func TestAdvisorTopCategoryNamesCategory(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.categories = []core.Category{
		{ID: 1, UserID: 1, Name: "Food"},
		{ID: 2, UserID: 1, Name: "Travel"},
	}
	store.addExpense(1, &store.categories[1].ID, 90000, now.AddDate(0, 0, -2))
	store.addExpense(1, &store.categories[0].ID, 10000, now.AddDate(0, 0, -2))

	advisor := NewAdvisor(store, store)
	got, err := advisor.Generate(context.Background(), 1, now)
	require.NoError(t, err)

	rows := insightsOfType(got, core.InsightTopCategory)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Description, "Travel")
	assert.InDelta(t, 90.0, rows[0].Percentage, 0.001)
}
