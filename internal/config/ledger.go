package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxBackoffBase  time.Duration
	OutboxBackoffMax   time.Duration
	OutboxEventsKey    string
	SweepInterval      time.Duration
	SweepBatchSize     int
	SweepMaxIterations int
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 100),
		OutboxBackoffBase:  getEnvAsDuration("OUTBOX_BACKOFF_BASE", 30*time.Second),
		OutboxBackoffMax:   getEnvAsDuration("OUTBOX_BACKOFF_MAX", 30*time.Minute),
		OutboxEventsKey:    getEnv("OUTBOX_EVENTS_KEY", "points_events"),
		SweepInterval:      getEnvAsDuration("HOLD_SWEEP_INTERVAL", 1*time.Minute),
		SweepBatchSize:     getEnvAsInt("HOLD_SWEEP_BATCH_SIZE", 50),
		SweepMaxIterations: getEnvAsInt("HOLD_SWEEP_MAX_ITERATIONS", 20),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
