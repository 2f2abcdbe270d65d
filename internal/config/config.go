// Package config loads the recognized configuration options:
// pool, locks, optimization, notifications, and broker.
//
// Configuration loading order, mirroring the teacher:
//  1. Load from .env file (if present)
//  2. Read environment variables with defaults
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// PoolConfig tunes the bounded WorkerPool.
type PoolConfig struct {
	MinWorkers               int
	MaxWorkers               int
	IdleTimeout              time.Duration
	MaxQueue                 int
	ConcurrentTasksPerWorker int
}

// LockConfig tunes the DocumentLockService.
type LockConfig struct {
	LeaseDuration  time.Duration
	ReapInterval   time.Duration
}

// OptimizationConfig tunes the OptimizationEngine.
type OptimizationConfig struct {
	Timeout1D           time.Duration
	Timeout2D           time.Duration
	DefaultKerfMM       int
	DefaultAlgorithm1D  string
	DefaultAlgorithm2D  string
}

// NotificationConfig tunes the NotificationService.
type NotificationConfig struct {
	Enabled            bool
	DefaultChannel     string
	PerChannelTimeout  time.Duration
}

// BrokerConfig tunes the optional MessageBroker adapter.
type BrokerConfig struct {
	URL           string
	Prefetch      int
	AckTimeout    time.Duration
	MaxDeliveries int
}

// ArchiveConfig tunes the supplemental PlanArchiver. Endpoint/Region/the
// credential pair follow the same shape as an R2-style S3-compatible
// bucket: a custom endpoint plus static access keys rather than an
// instance-role credential chain.
type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	KeyPrefix       string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Config is the fully resolved application configuration.
type Config struct {
	LogLevel     string
	DevMode      bool
	DataDir      string
	Pool         PoolConfig
	Locks        LockConfig
	Optimization OptimizationConfig
	Notification NotificationConfig
	Broker       BrokerConfig
	Archive      ArchiveConfig
}

// Load reads configuration from .env (if present) then environment
// variables, applying the documented defaults.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvBool("DEV_MODE", false),
		DataDir:  getEnv("CUTFLOW_DATA_DIR", "./data"),

		Pool: PoolConfig{
			MinWorkers:               getEnvInt("POOL_MIN_WORKERS", 4),
			MaxWorkers:               getEnvInt("POOL_MAX_WORKERS", 12),
			IdleTimeout:              getEnvDurationMS("POOL_IDLE_TIMEOUT_MS", 60_000),
			MaxQueue:                 getEnvInt("POOL_MAX_QUEUE", 256),
			ConcurrentTasksPerWorker: getEnvInt("POOL_CONCURRENCY_PER_WORKER", 1),
		},

		Locks: LockConfig{
			LeaseDuration: getEnvDurationMS("LOCKS_LEASE_MS", 900_000),
			ReapInterval:  getEnvDurationMS("LOCKS_REAP_INTERVAL_MS", 60_000),
		},

		Optimization: OptimizationConfig{
			Timeout1D:          getEnvDurationMS("OPT_TIMEOUT_1D_MS", 120_000),
			Timeout2D:          getEnvDurationMS("OPT_TIMEOUT_2D_MS", 300_000),
			DefaultKerfMM:      getEnvInt("OPT_DEFAULT_KERF_MM", 3),
			DefaultAlgorithm1D: getEnv("OPT_DEFAULT_ALGORITHM_1D", "1D_BFD"),
			DefaultAlgorithm2D: getEnv("OPT_DEFAULT_ALGORITHM_2D", "2D_BOTTOM_LEFT"),
		},

		Notification: NotificationConfig{
			Enabled:           getEnvBool("NOTIFICATIONS_ENABLED", true),
			DefaultChannel:    getEnv("NOTIFICATIONS_DEFAULT_CHANNEL", "in_app"),
			PerChannelTimeout: getEnvDurationMS("NOTIFICATIONS_PER_CHANNEL_TIMEOUT_MS", 10_000),
		},

		Broker: BrokerConfig{
			URL:           getEnv("BROKER_URL", ""),
			Prefetch:      getEnvInt("BROKER_PREFETCH", 16),
			AckTimeout:    getEnvDurationMS("BROKER_ACK_TIMEOUT_MS", 30_000),
			MaxDeliveries: getEnvInt("BROKER_MAX_DELIVERIES", 2),
		},

		Archive: ArchiveConfig{
			Enabled:         getEnvBool("ARCHIVE_ENABLED", false),
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			KeyPrefix:       getEnv("ARCHIVE_KEY_PREFIX", "cutting-plans"),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDurationMS(key string, fallbackMS int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMS)) * time.Millisecond
}
