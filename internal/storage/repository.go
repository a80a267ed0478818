// Package storage persists the finance tracker's data in SQLite. One
// repository serves as the ledger store, alert store, insight store, and user
// directory consumed by the engines in internal/services.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// Day-granular dates and fixed-width timestamps, both UTC. The timestamp
// layout is chosen so lexicographic comparison matches chronological order.
const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func fmtDate(t time.Time) string { return core.StartOfDay(t).Format(dateLayout) }

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseDate(s string) time.Time {
	t, _ := time.ParseInLocation(dateLayout, s, time.UTC)
	return t
}

func parseTime(s string) time.Time {
	t, _ := time.ParseInLocation(timeLayout, s, time.UTC)
	return t
}

func nullCategory(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func categoryPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

// notFound maps the driver's empty-result error onto the domain sentinel so
// callers can errors.Is against core.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// ---- users ----

func (r *SQLiteRepository) ActiveUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, external_id, email, display_name, is_active, created_at
		 FROM users WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, email, display_name, is_active, created_at
		 FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return &u, nil
}

// GetOrCreateUser resolves an external identity to a local user row,
// creating it on first sight.
func (r *SQLiteRepository) GetOrCreateUser(ctx context.Context, externalID, email, displayName string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, email, display_name, is_active, created_at
		 FROM users WHERE external_id = ?`, externalID)
	u, err := scanUser(row)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by external id: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (external_id, email, display_name, is_active, created_at)
		 VALUES (?, ?, ?, 1, ?)`,
		externalID, email, displayName, fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user insert id: %w", err)
	}
	return &core.User{
		ID:          id,
		ExternalID:  externalID,
		Email:       email,
		DisplayName: displayName,
		Active:      true,
		CreatedAt:   now,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (core.User, error) {
	var u core.User
	var createdAt string
	if err := s.Scan(&u.ID, &u.ExternalID, &u.Email, &u.DisplayName, &u.Active, &createdAt); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// ---- categories ----

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.Name == "" {
		return core.ErrEmptyName
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, budget_cents, created_at) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Name, c.Budget.Cents, fmtTime(now))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category insert id: %w", err)
	}
	c.CreatedAt = now
	return nil
}

func (r *SQLiteRepository) CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, budget_cents, created_at
		 FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Budget.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) CategoryByID(ctx context.Context, userID, id int64) (*core.Category, error) {
	var c core.Category
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, budget_cents, created_at
		 FROM categories WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Budget.Cents, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, notFound(err))
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (r *SQLiteRepository) UpdateCategoryBudget(ctx context.Context, userID, id int64, budget core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET budget_cents = ? WHERE id = ? AND user_id = ?`,
		budget.Cents, id, userID)
	if err != nil {
		return fmt.Errorf("update category budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category budget rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
