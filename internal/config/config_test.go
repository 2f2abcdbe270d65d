package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pool.MinWorkers)
	assert.Equal(t, 12, cfg.Pool.MaxWorkers)
	assert.Equal(t, 60*time.Second, cfg.Pool.IdleTimeout)
	assert.Equal(t, 256, cfg.Pool.MaxQueue)
	assert.Equal(t, 1, cfg.Pool.ConcurrentTasksPerWorker)

	assert.Equal(t, 15*time.Minute, cfg.Locks.LeaseDuration)
	assert.Equal(t, 60*time.Second, cfg.Locks.ReapInterval)

	assert.Equal(t, 120*time.Second, cfg.Optimization.Timeout1D)
	assert.Equal(t, 300*time.Second, cfg.Optimization.Timeout2D)
	assert.Equal(t, 3, cfg.Optimization.DefaultKerfMM)
	assert.Equal(t, "1D_BFD", cfg.Optimization.DefaultAlgorithm1D)
	assert.Equal(t, "2D_BOTTOM_LEFT", cfg.Optimization.DefaultAlgorithm2D)

	assert.True(t, cfg.Notification.Enabled)
	assert.Equal(t, "in_app", cfg.Notification.DefaultChannel)
	assert.Equal(t, 10*time.Second, cfg.Notification.PerChannelTimeout)

	assert.Equal(t, 16, cfg.Broker.Prefetch)
	assert.Equal(t, 2, cfg.Broker.MaxDeliveries)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POOL_MAX_WORKERS", "20")
	t.Setenv("OPT_DEFAULT_KERF_MM", "5")
	t.Setenv("NOTIFICATIONS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Pool.MaxWorkers)
	assert.Equal(t, 5, cfg.Optimization.DefaultKerfMM)
	assert.False(t, cfg.Notification.Enabled)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"POOL_MIN_WORKERS", "POOL_MAX_WORKERS", "POOL_IDLE_TIMEOUT_MS", "POOL_MAX_QUEUE",
		"POOL_CONCURRENCY_PER_WORKER", "LOCKS_LEASE_MS", "LOCKS_REAP_INTERVAL_MS",
		"OPT_TIMEOUT_1D_MS", "OPT_TIMEOUT_2D_MS", "OPT_DEFAULT_KERF_MM",
		"OPT_DEFAULT_ALGORITHM_1D", "OPT_DEFAULT_ALGORITHM_2D", "NOTIFICATIONS_ENABLED",
		"NOTIFICATIONS_DEFAULT_CHANNEL", "NOTIFICATIONS_PER_CHANNEL_TIMEOUT_MS",
		"BROKER_URL", "BROKER_PREFETCH", "BROKER_ACK_TIMEOUT_MS", "BROKER_MAX_DELIVERIES",
	} {
		os.Unsetenv(key)
	}
}
