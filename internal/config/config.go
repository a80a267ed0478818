package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (empty URL disables alert notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler; hours are local wall-clock hours for the daily jobs
	RecurrenceHour  int
	GoalHour        int
	AlertHour       int
	InsightHour     int
	AdvisorInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "alert_notifications"),

		RecurrenceHour:  getEnvInt("RECURRENCE_HOUR", 6),
		GoalHour:        getEnvInt("GOAL_HOUR", 7),
		AlertHour:       getEnvInt("ALERT_HOUR", 8),
		InsightHour:     getEnvInt("INSIGHT_HOUR", 9),
		AdvisorInterval: getEnvDuration("ADVISOR_INTERVAL", 6*time.Hour),
	}

	return cfg
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	for _, h := range []struct {
		name string
		hour int
	}{
		{"RECURRENCE_HOUR", c.RecurrenceHour},
		{"GOAL_HOUR", c.GoalHour},
		{"ALERT_HOUR", c.AlertHour},
		{"INSIGHT_HOUR", c.InsightHour},
	} {
		if h.hour < 0 || h.hour > 23 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 0 and 23", h.name, h.hour))
		}
	}

	if c.AdvisorInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid advisor interval %v: must be at least 1 minute", c.AdvisorInterval))
	} else if c.AdvisorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid advisor interval %v: must be at most 24 hours", c.AdvisorInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
