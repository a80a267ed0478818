package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.NewFromEnv("analytics-worker")
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher services.AlertPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, alert notifications disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - alerts will not be published")
	}

	recurring := services.NewRecurringProcessor(repo)
	alerts := services.NewAlertEngine(repo, repo, publisher)
	goals := services.NewGoalMonitor(repo, alerts)
	advisor := services.NewAdvisor(repo, repo)
	insights := services.NewInsightEngine(repo, repo, advisor)

	scheduler := worker.NewScheduler(repo, recurring, alerts, goals, insights, advisor, worker.Config{
		RecurrenceHour:  cfg.RecurrenceHour,
		GoalHour:        cfg.GoalHour,
		AlertHour:       cfg.AlertHour,
		InsightHour:     cfg.InsightHour,
		AdvisorInterval: cfg.AdvisorInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run recurrence materialization once at startup so a worker that was
	// down over a due date catches up without waiting for the next window.
	if count, err := recurring.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial recurrence processing failed", "error", err)
	} else {
		logger.Info("Initial recurrence processing complete", "entries_created", count)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Start()
		logger.Info("Scheduler started",
			"recurrence_hour", cfg.RecurrenceHour,
			"goal_hour", cfg.GoalHour,
			"alert_hour", cfg.AlertHour,
			"insight_hour", cfg.InsightHour,
			"advisor_interval", cfg.AdvisorInterval)

		<-gctx.Done()
		logger.Info("Stopping scheduler...")
		scheduler.Stop()
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			logger.Info("Consuming alert notifications", "queue", cfg.AMQPQueue)
			return amqpClient.ConsumeAlertNotifications(gctx, func(n *amqp.AlertNotification) error {
				logger.Info("Alert notification delivered",
					"alert_id", n.AlertID,
					"user_id", n.UserID,
					"type", n.AlertType)
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}
