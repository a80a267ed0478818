// Package worker runs the engines on fixed cadences: the daily jobs fire at
// configured wall-clock hours, the advisor refresh on a fixed interval. Jobs
// are independent goroutines and may overlap; each fans out over the active
// users sequentially and isolates per-user failures.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
)

type UserDirectory interface {
	ActiveUsers(ctx context.Context) ([]core.User, error)
}

type RecurrenceProcessor interface {
	ProcessDue(ctx context.Context, asOf time.Time) (int, error)
}

type AlertGenerator interface {
	GenerateAll(ctx context.Context, userID int64, now time.Time) (int, error)
}

type GoalChecker interface {
	GenerateGoalAlerts(ctx context.Context, userID int64, now time.Time) (int, error)
	CheckCompletion(ctx context.Context, userID int64) (int, error)
}

type InsightGenerator interface {
	GenerateAll(ctx context.Context, userID int64, now time.Time) (int, error)
}

type AdvisorRefresher interface {
	Generate(ctx context.Context, userID int64, now time.Time) ([]core.Insight, error)
}

// Hours are local wall-clock hours for the daily jobs.
type Config struct {
	RecurrenceHour  int
	GoalHour        int
	AlertHour       int
	InsightHour     int
	AdvisorInterval time.Duration
}

type Scheduler struct {
	users      UserDirectory
	recurrence RecurrenceProcessor
	alerts     AlertGenerator
	goals      GoalChecker
	insights   InsightGenerator
	advisor    AdvisorRefresher
	cfg        Config

	stop chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
	run  bool
}

func NewScheduler(
	users UserDirectory,
	recurrence RecurrenceProcessor,
	alerts AlertGenerator,
	goals GoalChecker,
	insights InsightGenerator,
	advisor AdvisorRefresher,
	cfg Config,
) *Scheduler {
	return &Scheduler{
		users:      users,
		recurrence: recurrence,
		alerts:     alerts,
		goals:      goals,
		insights:   insights,
		advisor:    advisor,
		cfg:        cfg,
		stop:       make(chan struct{}),
	}
}

// Start launches one goroutine per job. Safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run {
		return
	}
	s.run = true

	daily := []struct {
		name string
		hour int
	}{
		{"recurrence", s.cfg.RecurrenceHour},
		{"goals", s.cfg.GoalHour},
		{"alerts", s.cfg.AlertHour},
		{"insights", s.cfg.InsightHour},
	}
	for _, job := range daily {
		s.wg.Add(1)
		go s.runDaily(job.name, job.hour)
	}

	s.wg.Add(1)
	go s.runInterval("advisor", s.cfg.AdvisorInterval)

	slog.Info("Scheduler started",
		"recurrence_hour", s.cfg.RecurrenceHour,
		"goal_hour", s.cfg.GoalHour,
		"alert_hour", s.cfg.AlertHour,
		"insight_hour", s.cfg.InsightHour,
		"advisor_interval", s.cfg.AdvisorInterval)
}

// Stop signals every job loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.run {
		return
	}
	s.run = false

	close(s.stop)
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) runDaily(name string, hour int) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Until(nextRun(time.Now(), hour)))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := s.RunJobNow(context.Background(), name); err != nil {
				slog.Error("Scheduled job failed", "job", name, "error", err)
			}
			timer.Reset(time.Until(nextRun(time.Now(), hour)))
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) runInterval(name string, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunJobNow(context.Background(), name); err != nil {
				slog.Error("Scheduled job failed", "job", name, "error", err)
			}
		case <-s.stop:
			return
		}
	}
}

// RunJobNow executes one job immediately, for manual triggering.
func (s *Scheduler) RunJobNow(ctx context.Context, name string) error {
	now := time.Now()
	slog.InfoContext(ctx, "Running job", "job", name)

	switch name {
	case "recurrence":
		n, err := s.recurrence.ProcessDue(ctx, now)
		if err != nil {
			return fmt.Errorf("process due templates: %w", err)
		}
		slog.InfoContext(ctx, "Job complete", "job", name, "processed", n)
		return nil
	case "goals":
		return s.fanOut(ctx, name, func(ctx context.Context, userID int64) error {
			if _, err := s.goals.GenerateGoalAlerts(ctx, userID, now); err != nil {
				return err
			}
			_, err := s.goals.CheckCompletion(ctx, userID)
			return err
		})
	case "alerts":
		return s.fanOut(ctx, name, func(ctx context.Context, userID int64) error {
			_, err := s.alerts.GenerateAll(ctx, userID, now)
			return err
		})
	case "insights":
		return s.fanOut(ctx, name, func(ctx context.Context, userID int64) error {
			_, err := s.insights.GenerateAll(ctx, userID, now)
			return err
		})
	case "advisor":
		return s.fanOut(ctx, name, func(ctx context.Context, userID int64) error {
			_, err := s.advisor.Generate(ctx, userID, now)
			return err
		})
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

// fanOut snapshots the active users and runs fn for each. A failing user is
// logged and skipped; the batch always reaches the end of the snapshot.
func (s *Scheduler) fanOut(ctx context.Context, job string, fn func(ctx context.Context, userID int64) error) error {
	users, err := s.users.ActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}

	failed := 0
	for _, u := range users {
		if err := fn(ctx, u.ID); err != nil {
			slog.ErrorContext(ctx, "Job failed for user",
				"job", job,
				"user_id", u.ID,
				"error", err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Job complete",
		"job", job,
		"users", len(users),
		"failed", failed)
	return nil
}

// nextRun returns the next wall-clock occurrence of hour after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
