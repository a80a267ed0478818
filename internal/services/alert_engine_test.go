package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

// Monday of a fixed week, for weekend-rule windows.
var testWeekMonday = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func TestGenerateBudgetAlertsThresholds(t *testing.T) {
	tests := []struct {
		name       string
		spentCents int64
		wantType   string
	}{
		{"at budget fires exceeded", 50000, core.AlertBudgetExceeded},
		{"over budget fires exceeded", 55000, core.AlertBudgetExceeded},
		{"at 80 percent fires warning", 40000, core.AlertBudgetWarning},
		{"below 80 percent stays quiet", 30000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.categories = []core.Category{{ID: 1, UserID: 1, Name: "Food", Budget: core.Money{Cents: 50000}}}
			store.addExpense(1, &store.categories[0].ID, tt.spentCents, testWeekMonday)

			engine := NewAlertEngine(store, store, nil)
			created, err := engine.GenerateBudgetAlerts(context.Background(), 1)
			require.NoError(t, err)

			if tt.wantType == "" {
				assert.Empty(t, created)
				return
			}
			require.Len(t, created, 1)
			assert.Equal(t, tt.wantType, created[0].Type)
			assert.Equal(t, int64(50000), created[0].Threshold.Cents)
			assert.Equal(t, tt.spentCents, created[0].CurrentValue.Cents)
		})
	}
}

func TestGenerateBudgetAlertsIgnoresUnbudgeted(t *testing.T) {
	store := newFakeStore()
	store.categories = []core.Category{{ID: 1, UserID: 1, Name: "Misc"}}
	store.addExpense(1, &store.categories[0].ID, 999999, testWeekMonday)

	engine := NewAlertEngine(store, store, nil)
	created, err := engine.GenerateBudgetAlerts(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestGenerateWeekendAlert(t *testing.T) {
	saturday := testWeekMonday.AddDate(0, 0, 5)

	t.Run("weekend majority fires", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 10000, testWeekMonday)
		store.addExpense(1, nil, 15000, saturday)

		engine := NewAlertEngine(store, store, nil)
		alert, err := engine.GenerateWeekendAlert(context.Background(), 1, saturday)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, core.AlertWeekendSpending, alert.Type)
		assert.Contains(t, alert.Message, "60.0%")
	})

	t.Run("exactly half stays quiet", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 10000, testWeekMonday)
		store.addExpense(1, nil, 10000, saturday)

		engine := NewAlertEngine(store, store, nil)
		alert, err := engine.GenerateWeekendAlert(context.Background(), 1, saturday)
		require.NoError(t, err)
		assert.Nil(t, alert)
	})

	t.Run("no weekday spending stays quiet", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 15000, saturday)

		engine := NewAlertEngine(store, store, nil)
		alert, err := engine.GenerateWeekendAlert(context.Background(), 1, saturday)
		require.NoError(t, err)
		assert.Nil(t, alert)
	})
}

func TestGenerateUnusualSpendingAlert(t *testing.T) {
	today := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	t.Run("more than double fires", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 5000, yesterday)
		store.addExpense(1, nil, 10100, today)

		engine := NewAlertEngine(store, store, nil)
		alert, err := engine.GenerateUnusualSpendingAlert(context.Background(), 1, today)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.Equal(t, core.AlertUnusualSpending, alert.Type)
		assert.Equal(t, int64(5000), alert.Threshold.Cents)
		assert.Equal(t, int64(10100), alert.CurrentValue.Cents)
	})

	t.Run("exactly double stays quiet", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 5000, yesterday)
		store.addExpense(1, nil, 10000, today)

		engine := NewAlertEngine(store, store, nil)
		alert, err := engine.GenerateUnusualSpendingAlert(context.Background(), 1, today)
		require.NoError(t, err)
		assert.Nil(t, alert)
	})

	t.Run("zero yesterday stays quiet", func(t *testing.T) {
		store := newFakeStore()
		store.addExpense(1, nil, 10000, today)

		engine := NewAlertEngine(store, store, nil)
		alert, err := engine.GenerateUnusualSpendingAlert(context.Background(), 1, today)
		require.NoError(t, err)
		assert.Nil(t, alert)
	})
}

func TestGenerateAllAppendsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.categories = []core.Category{{ID: 1, UserID: 1, Name: "Food", Budget: core.Money{Cents: 50000}}}
	store.addExpense(1, &store.categories[0].ID, 60000, testWeekMonday)

	engine := NewAlertEngine(store, store, nil)
	now := testWeekMonday.AddDate(0, 0, 2)

	n, err := engine.GenerateAll(context.Background(), 1, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second evaluation appends a second identical alert; there is no dedup.
	n, err = engine.GenerateAll(context.Background(), 1, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, store.alerts, 2)
}

func TestCreateAlertPublishesNotification(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	engine := NewAlertEngine(store, store, pub)

	alert := &core.Alert{UserID: 1, Type: core.AlertUnusualSpending, Message: "spike"}
	require.NoError(t, engine.CreateAlert(context.Background(), alert))
	require.Len(t, pub.published, 1)
	assert.Equal(t, alert.ID, pub.published[0].ID)
}

func TestCreateAlertToleratesPublishFailure(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{fail: true}
	engine := NewAlertEngine(store, store, pub)

	alert := &core.Alert{UserID: 1, Type: core.AlertUnusualSpending, Message: "spike"}
	require.NoError(t, engine.CreateAlert(context.Background(), alert))
	assert.Len(t, store.alerts, 1)
}

func TestCreateAlertWithNilPublisher(t *testing.T) {
	store := newFakeStore()
	engine := NewAlertEngine(store, store, nil)

	alert := &core.Alert{UserID: 1, Type: core.AlertWeekendSpending, Message: "weekend"}
	require.NoError(t, engine.CreateAlert(context.Background(), alert))
	assert.Len(t, store.alerts, 1)
}

func TestMarkAllReadFlipsOnlyUnread(t *testing.T) {
	store := newFakeStore()
	engine := NewAlertEngine(store, store, nil)
	ctx := context.Background()

	a1 := &core.Alert{UserID: 1, Type: core.AlertBudgetWarning, Message: "warn"}
	a2 := &core.Alert{UserID: 1, Type: core.AlertBudgetExceeded, Message: "over"}
	require.NoError(t, engine.CreateAlert(ctx, a1))
	require.NoError(t, engine.CreateAlert(ctx, a2))
	require.NoError(t, engine.MarkRead(ctx, 1, a1.ID))

	n, err := engine.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := engine.UnreadAlertCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
