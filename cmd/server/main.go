// Package main is the entry point for the cutting-optimization backend:
// the worker pool, optimization engine/consumer, document-lock service,
// notification fan-out, activity feed, audit trail, plan approval and
// archival, and the optional Redis-backed cross-process event bridge.
//
// HTTP routing, file import, and the error-tracking sink are external
// ports served by a separate process; this binary wires only the
// services behind them.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cutflow/core/internal/activity"
	"github.com/cutflow/core/internal/archive"
	"github.com/cutflow/core/internal/audit"
	"github.com/cutflow/core/internal/broker"
	"github.com/cutflow/core/internal/config"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/locks"
	"github.com/cutflow/core/internal/notifications"
	"github.com/cutflow/core/internal/notifications/adapters"
	"github.com/cutflow/core/internal/optimization"
	"github.com/cutflow/core/internal/plans"
	"github.com/cutflow/core/internal/pool"
	"github.com/cutflow/core/internal/presence"
	"github.com/cutflow/core/internal/registry"
	"github.com/cutflow/core/internal/store/sqlite"
	"github.com/cutflow/core/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Msg("starting cutflow core")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}
	db, err := sqlite.Open(filepath.Join(cfg.DataDir, "cutflow.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	st := sqlite.New(db)

	bus := events.NewBus(log, 500)
	em := events.NewManager(bus, log)
	hub := presence.NewHub(log)
	workers := pool.New(pool.Config{
		MinWorkers:               cfg.Pool.MinWorkers,
		MaxWorkers:               cfg.Pool.MaxWorkers,
		IdleTimeout:              cfg.Pool.IdleTimeout,
		MaxQueue:                 cfg.Pool.MaxQueue,
		ConcurrentTasksPerWorker: cfg.Pool.ConcurrentTasksPerWorker,
	}, log)

	channelAdapters := []adapters.Adapter{
		adapters.NewEmail(log),
		adapters.NewSMS(log),
		adapters.NewPush(log),
		adapters.NewInApp(),
	}
	notifier := notifications.NewService(st, channelAdapters, cfg.Notification, log)

	engine := optimization.NewEngine(st, workers, em, cfg.Optimization, log)
	consumer := optimization.NewConsumer(engine, bus, log)
	consumer.Start()

	lockService := locks.NewService(st, em, cfg.Locks.LeaseDuration, log)
	if err := lockService.Start("@every 60s"); err != nil {
		log.Fatal().Err(err).Msg("failed to start document lock reaper")
	}
	defer lockService.Stop()

	activityService := activity.NewService(st, em, hub, notifier, log)
	_ = activityService // exercised by the out-of-scope HTTP router, not this process's background loop

	auditService := audit.NewService(st, log)
	_ = auditService

	planApproval := plans.NewService(st, em)
	_ = planApproval

	svcRegistry := registry.New()
	_ = svcRegistry // reserved for same-process callers outside this binary; none registered here

	if cfg.Archive.Enabled {
		archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3Client, err := archive.NewClient(archiveCtx, cfg.Archive)
		archiveCancel()
		if err != nil {
			log.Error().Err(err).Msg("failed to build archive client, plan archival disabled")
		} else {
			archiver := archive.NewArchiver(s3Client, st, cfg.Archive, log)
			archiver.Start(bus)
			log.Info().Str("bucket", cfg.Archive.Bucket).Msg("plan archiver started")
		}
	}

	var msgBroker *broker.Broker
	if cfg.Broker.URL != "" {
		redisClient, err := broker.NewClient(cfg.Broker.URL)
		if err != nil {
			log.Error().Err(err).Msg("failed to build broker client, cross-process event bridge disabled")
		} else {
			hostname, _ := os.Hostname()
			msgBroker = broker.New(redisClient, cfg.Broker, hostname, log)
			bridgeOutboundEvents(bus, msgBroker, log)
			log.Info().Str("url", cfg.Broker.URL).Msg("message broker bridge started")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	workers.Shutdown(shutdownCtx)
	shutdownCancel()

	log.Info().Msg("shutdown complete")
}

// bridgeOutboundEvents republishes outcome events that other instances
// need to observe (optimization completion/failure, plan approval) onto
// the durable broker, so a horizontally scaled deployment doesn't rely on
// the in-process bus alone for cross-instance effects like archival or
// notification delivery.
func bridgeOutboundEvents(bus *events.Bus, b *broker.Broker, log zerolog.Logger) {
	for _, eventType := range []events.Type{
		events.OptimizationCompleted,
		events.OptimizationFailed,
		events.PlanApproved,
		events.PlanRejected,
	} {
		eventType := eventType
		bus.Subscribe(eventType, "broker_bridge", func(event events.Event) {
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to encode event for broker bridge")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := b.Publish(ctx, string(eventType), payload); err != nil {
				log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish event to broker")
			}
		})
	}
}
