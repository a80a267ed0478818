package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newInsightEngine(store *fakeStore) *InsightEngine {
	return NewInsightEngine(store, store, NewAdvisor(store, store))
}

func insightsOfType(insights []core.Insight, typ string) []core.Insight {
	var out []core.Insight
	for _, i := range insights {
		if i.Type == typ {
			out = append(out, i)
		}
	}
	return out
}

func TestGenerateWeekendVsWeekdayInsight(t *testing.T) {
	// now is a Wednesday; the previous week runs Mar 2 (Mon) to Mar 8 (Sun).
	now := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	prevMonday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.addExpense(1, nil, 10000, prevMonday)
	store.addExpense(1, nil, 15000, prevMonday.AddDate(0, 0, 5))

	engine := newInsightEngine(store)
	n, err := engine.GenerateAll(context.Background(), 1, now)
	require.NoError(t, err)

	rows := insightsOfType(store.insights, core.InsightWeekendVsWeekday)
	require.Len(t, rows, 1)
	assert.InDelta(t, 60.0, rows[0].Percentage, 0.001)
	assert.Equal(t, int64(15000), rows[0].Value.Cents)
	assert.Equal(t, "Previous Week", rows[0].Period)
	assert.GreaterOrEqual(t, n, 1)
}

func TestGenerateCategoryComparisonPicksTop(t *testing.T) {
	now := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.categories = []core.Category{
		{ID: 1, UserID: 1, Name: "Food"},
		{ID: 2, UserID: 1, Name: "Rent"},
	}
	store.addExpense(1, &store.categories[0].ID, 30000, now.AddDate(0, 0, -3))
	store.addExpense(1, &store.categories[1].ID, 70000, now.AddDate(0, 0, -3))

	engine := newInsightEngine(store)
	_, err := engine.GenerateAll(context.Background(), 1, now)
	require.NoError(t, err)

	rows := insightsOfType(store.insights, core.InsightCategoryCompare)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CategoryID)
	assert.Equal(t, int64(2), *rows[0].CategoryID)
	assert.InDelta(t, 70.0, rows[0].Percentage, 0.001)
	assert.Contains(t, rows[0].Description, "Rent")
}

func TestGenerateSpendingTrendNeedsPriorWeek(t *testing.T) {
	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)

	t.Run("prior week spending present", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 10000, now.AddDate(0, 0, -10)) // preceding window
		store.addExpense(1, nil, 15000, now.AddDate(0, 0, -3))  // trailing window

		engine := newInsightEngine(store)
		_, err := engine.GenerateAll(context.Background(), 1, now)
		require.NoError(t, err)

		rows := insightsOfType(store.insights, core.InsightSpendingTrend)
		require.Len(t, rows, 1)
		assert.Contains(t, rows[0].Description, "increased")
		assert.InDelta(t, 50.0, rows[0].Percentage, 0.001)
	})

	t.Run("no prior week spending skips", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 15000, now.AddDate(0, 0, -3))

		engine := newInsightEngine(store)
		_, err := engine.GenerateAll(context.Background(), 1, now)
		require.NoError(t, err)
		assert.Empty(t, insightsOfType(store.insights, core.InsightSpendingTrend))
	})
}

func TestGenerateDailyAverage(t *testing.T) {
	// March 10: ten days elapsed this month.
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.addExpense(1, nil, 50000, now.AddDate(0, 0, -5))

	engine := newInsightEngine(store)
	_, err := engine.GenerateAll(context.Background(), 1, now)
	require.NoError(t, err)

	rows := insightsOfType(store.insights, core.InsightDailyAverage)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5000), rows[0].Value.Cents)
	assert.Equal(t, "Current Month", rows[0].Period)
}

func TestGetLatestFreshness(t *testing.T) {
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	seed := func(age time.Duration) *fakeStore {
		store := newFakeStore()
		store.insights = append(store.insights, core.Insight{
			ID: 1, UserID: 1, Type: core.InsightDailyAverage,
			Title: "cached", Period: "Current Month",
			CalculatedAt: now.Add(-age),
		})
		return store
	}

	t.Run("fresh batch served unchanged", func(t *testing.T) {
		store := seed(23 * time.Hour)
		engine := newInsightEngine(store)

		got, err := engine.GetLatest(context.Background(), 1, 10, now)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "cached", got[0].Title)
		assert.Len(t, store.insights, 1)
	})

	t.Run("stale batch regenerated", func(t *testing.T) {
		store := seed(25 * time.Hour)
		engine := newInsightEngine(store)

		got, err := engine.GetLatest(context.Background(), 1, 10, now)
		require.NoError(t, err)
		// The user has no ledger rows, so the advisor serves the
		// onboarding pair in place of the stale batch.
		require.Len(t, got, 2)
		assert.Equal(t, core.InsightWelcome, got[0].Type)
		assert.Equal(t, core.InsightTip, got[1].Type)
		assert.Len(t, store.insights, 3)
	})

	t.Run("empty history regenerates", func(t *testing.T) {
		store := newFakeStore()
		engine := newInsightEngine(store)

		got, err := engine.GetLatest(context.Background(), 1, 10, now)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})
}
