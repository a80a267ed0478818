package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// In-memory fakes shared by the service tests. They implement only what the
// engines call; IDs are assigned sequentially like SQLite rowids.

type fakeStore struct {
	templates  []core.RecurringTemplate
	entries    []core.LedgerEntry
	categories []core.Category
	alerts     []core.Alert
	goals      []core.SavingsGoal
	insights   []core.Insight

	failMaterializeFor map[int64]bool
	failCreateAlert    bool
	nextID             int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{failMaterializeFor: map[int64]bool{}}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) DueTemplates(_ context.Context, asOf time.Time) ([]core.RecurringTemplate, error) {
	var due []core.RecurringTemplate
	for _, t := range f.templates {
		if t.Due(asOf) {
			due = append(due, t)
		}
	}
	return due, nil
}

func (f *fakeStore) DueTemplatesForUser(ctx context.Context, userID int64, asOf time.Time) ([]core.RecurringTemplate, error) {
	all, _ := f.DueTemplates(ctx, asOf)
	var due []core.RecurringTemplate
	for _, t := range all {
		if t.UserID == userID {
			due = append(due, t)
		}
	}
	return due, nil
}

func (f *fakeStore) MaterializeDueTemplate(_ context.Context, entry *core.LedgerEntry, templateID int64, nextDue time.Time) error {
	if f.failMaterializeFor[templateID] {
		return errors.New("disk full")
	}
	for i := range f.templates {
		if f.templates[i].ID == templateID {
			entry.ID = f.id()
			f.entries = append(f.entries, *entry)
			f.templates[i].NextDueDate = nextDue
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) CreateTemplate(_ context.Context, t *core.RecurringTemplate) error {
	t.ID = f.id()
	t.Active = true
	f.templates = append(f.templates, *t)
	return nil
}

func (f *fakeStore) TemplateByID(_ context.Context, userID, id int64) (*core.RecurringTemplate, error) {
	for _, t := range f.templates {
		if t.ID == id && t.UserID == userID {
			return &t, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) ActiveTemplatesForUser(_ context.Context, userID int64) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	for _, t := range f.templates {
		if t.UserID == userID && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TemplatesByKind(_ context.Context, userID int64, kind core.EntryKind) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	for _, t := range f.templates {
		if t.UserID == userID && t.Kind == kind && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TemplatesByPattern(_ context.Context, userID int64, pattern core.RecurrencePattern) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	for _, t := range f.templates {
		if t.UserID == userID && t.Pattern == pattern {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TemplatesByCategory(_ context.Context, userID, categoryID int64) ([]core.RecurringTemplate, error) {
	var out []core.RecurringTemplate
	for _, t := range f.templates {
		if t.UserID == userID && t.CategoryID != nil && *t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTemplate(_ context.Context, t *core.RecurringTemplate) error {
	for i := range f.templates {
		if f.templates[i].ID == t.ID && f.templates[i].UserID == t.UserID {
			f.templates[i] = *t
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) DeactivateTemplate(_ context.Context, userID, id int64) error {
	for i := range f.templates {
		if f.templates[i].ID == id && f.templates[i].UserID == userID {
			f.templates[i].Active = false
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) CreateAlert(_ context.Context, a *core.Alert) error {
	if f.failCreateAlert {
		return errors.New("disk full")
	}
	a.ID = f.id()
	a.CreatedAt = time.Now().UTC()
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeStore) UnreadAlerts(_ context.Context, userID int64) ([]core.Alert, error) {
	var out []core.Alert
	for _, a := range f.alerts {
		if a.UserID == userID && !a.Read {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) UnreadAlertCount(ctx context.Context, userID int64) (int64, error) {
	unread, _ := f.UnreadAlerts(ctx, userID)
	return int64(len(unread)), nil
}

func (f *fakeStore) AlertsByType(_ context.Context, userID int64, alertType string) ([]core.Alert, error) {
	var out []core.Alert
	for _, a := range f.alerts {
		if a.UserID == userID && a.Type == alertType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) AlertsByCategory(_ context.Context, userID, categoryID int64) ([]core.Alert, error) {
	var out []core.Alert
	for _, a := range f.alerts {
		if a.UserID == userID && a.CategoryID != nil && *a.CategoryID == categoryID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) AlertsSince(_ context.Context, userID int64, since time.Time) ([]core.Alert, error) {
	var out []core.Alert
	for _, a := range f.alerts {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkAlertRead(_ context.Context, userID, id int64) error {
	for i := range f.alerts {
		if f.alerts[i].ID == id && f.alerts[i].UserID == userID {
			f.alerts[i].Read = true
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) MarkAllAlertsRead(_ context.Context, userID int64) (int64, error) {
	var n int64
	for i := range f.alerts {
		if f.alerts[i].UserID == userID && !f.alerts[i].Read {
			f.alerts[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateGoal(_ context.Context, g *core.SavingsGoal) error {
	g.ID = f.id()
	g.Active = true
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	f.goals = append(f.goals, *g)
	return nil
}

func (f *fakeStore) GoalByID(_ context.Context, userID, id int64) (*core.SavingsGoal, error) {
	for _, g := range f.goals {
		if g.ID == id && g.UserID == userID {
			return &g, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) ActiveGoals(_ context.Context, userID int64) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	for _, g := range f.goals {
		if g.UserID == userID && g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) CompletedGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	active, _ := f.ActiveGoals(ctx, userID)
	var out []core.SavingsGoal
	for _, g := range active {
		if g.Completed() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) OverdueGoals(ctx context.Context, userID int64, asOf time.Time) ([]core.SavingsGoal, error) {
	active, _ := f.ActiveGoals(ctx, userID)
	var out []core.SavingsGoal
	for _, g := range active {
		if g.Overdue(asOf) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) GoalsByCategory(_ context.Context, userID, categoryID int64) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	for _, g := range f.goals {
		if g.UserID == userID && g.CategoryID != nil && *g.CategoryID == categoryID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateGoal(_ context.Context, g *core.SavingsGoal) error {
	for i := range f.goals {
		if f.goals[i].ID == g.ID && f.goals[i].UserID == g.UserID {
			f.goals[i] = *g
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) DeactivateGoal(_ context.Context, userID, id int64) error {
	for i := range f.goals {
		if f.goals[i].ID == id && f.goals[i].UserID == userID {
			f.goals[i].Active = false
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) AddGoalProgress(ctx context.Context, userID, id int64, delta core.Money) (*core.SavingsGoal, error) {
	for i := range f.goals {
		if f.goals[i].ID == id && f.goals[i].UserID == userID && f.goals[i].Active {
			f.goals[i].CurrentAmount = f.goals[i].CurrentAmount.Add(delta)
			if f.goals[i].CurrentAmount.Cents < 0 {
				f.goals[i].CurrentAmount = core.Money{}
			}
			return f.GoalByID(ctx, userID, id)
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) CreateInsight(_ context.Context, i *core.Insight) error {
	i.ID = f.id()
	if i.CalculatedAt.IsZero() {
		i.CalculatedAt = time.Now().UTC()
	}
	f.insights = append(f.insights, *i)
	return nil
}

func (f *fakeStore) LatestInsights(_ context.Context, userID int64, limit int) ([]core.Insight, error) {
	var out []core.Insight
	for i := len(f.insights) - 1; i >= 0; i-- {
		if f.insights[i].UserID != userID {
			continue
		}
		out = append(out, f.insights[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) InsightsByType(_ context.Context, userID int64, insightType string) ([]core.Insight, error) {
	var out []core.Insight
	for _, i := range f.insights {
		if i.UserID == userID && i.Type == insightType {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) InsightsByCategory(_ context.Context, userID, categoryID int64) ([]core.Insight, error) {
	var out []core.Insight
	for _, i := range f.insights {
		if i.UserID == userID && i.CategoryID != nil && *i.CategoryID == categoryID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) InsightsSince(_ context.Context, userID int64, since time.Time) ([]core.Insight, error) {
	var out []core.Insight
	for _, i := range f.insights {
		if i.UserID == userID && !i.CalculatedAt.Before(since) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) CategoriesForUser(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) EntriesForUser(_ context.Context, userID int64) ([]core.LedgerEntry, error) {
	var out []core.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ExpenseTotalForCategory(_ context.Context, userID, categoryID int64) (core.Money, error) {
	var total core.Money
	for _, e := range f.entries {
		if e.UserID == userID && e.Kind == core.Expense && e.CategoryID != nil && *e.CategoryID == categoryID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (f *fakeStore) ExpenseTotalInRange(_ context.Context, userID int64, from, to time.Time) (core.Money, error) {
	var total core.Money
	for _, e := range f.entries {
		d := core.StartOfDay(e.Date)
		if e.UserID == userID && e.Kind == core.Expense &&
			!d.Before(core.StartOfDay(from)) && !d.After(core.StartOfDay(to)) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (f *fakeStore) ExpenseTotalForCategoryInRange(ctx context.Context, userID, categoryID int64, from, to time.Time) (core.Money, error) {
	var total core.Money
	for _, e := range f.entries {
		d := core.StartOfDay(e.Date)
		if e.UserID == userID && e.Kind == core.Expense && e.CategoryID != nil && *e.CategoryID == categoryID &&
			!d.Before(core.StartOfDay(from)) && !d.After(core.StartOfDay(to)) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

// addExpense seeds an expense row dated on day.
func (f *fakeStore) addExpense(userID int64, categoryID *int64, cents int64, day time.Time) {
	f.entries = append(f.entries, core.LedgerEntry{
		ID:          f.id(),
		UserID:      userID,
		CategoryID:  categoryID,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: cents},
		Description: fmt.Sprintf("expense %d", f.nextID),
		Date:        core.StartOfDay(day),
	})
}

func (f *fakeStore) addIncome(userID int64, cents int64, day time.Time) {
	f.entries = append(f.entries, core.LedgerEntry{
		ID:          f.id(),
		UserID:      userID,
		Kind:        core.Income,
		Amount:      core.Money{Cents: cents},
		Description: fmt.Sprintf("income %d", f.nextID),
		Date:        core.StartOfDay(day),
	})
}

type fakePublisher struct {
	published []core.Alert
	fail      bool
}

func (p *fakePublisher) PublishAlertNotification(_ context.Context, a core.Alert) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.published = append(p.published, a)
	return nil
}
