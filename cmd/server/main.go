package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/api"
	"github.com/tpcgrp/p6ebs-sync/internal/config"
	"github.com/tpcgrp/p6ebs-sync/internal/correlation"
	"github.com/tpcgrp/p6ebs-sync/internal/db"
	"github.com/tpcgrp/p6ebs-sync/internal/integration"
	"github.com/tpcgrp/p6ebs-sync/internal/lock"
	"github.com/tpcgrp/p6ebs-sync/internal/logging"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/metrics"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/notify"
	"github.com/tpcgrp/p6ebs-sync/internal/reconcile"
	"github.com/tpcgrp/p6ebs-sync/internal/report"
	"github.com/tpcgrp/p6ebs-sync/internal/scheduler"
	"github.com/tpcgrp/p6ebs-sync/internal/source"
	"github.com/tpcgrp/p6ebs-sync/internal/transform"
	"github.com/tpcgrp/p6ebs-sync/internal/validation"
)

const discrepancySetTTL = 2 * time.Hour

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)
	ring := logging.NewRingHook(logging.DefaultRingSize)
	logger.AddHook(ring)

	provider, err := config.NewProvider(config.NewFileStore(cfg.IntegrationConfigFile))
	if err != nil {
		logger.Fatalf("Failed to load integration configuration: %v", err)
	}
	integrationCfg := provider.Get()

	ctx := context.Background()
	syncCfg := config.DefaultSyncConfig()
	sourceCfg := config.DefaultSourceConfig()
	syncMetrics := metrics.NewSyncMetrics()

	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup")
		}
		defer rdb.Close()
	}

	p6, err := buildSource(models.SystemP6, integrationCfg.P6, cfg, sourceCfg, rdb, syncMetrics, logger)
	if err != nil {
		logger.Fatalf("Failed to configure P6 source: %v", err)
	}
	ebs, err := buildSource(models.SystemEBS, integrationCfg.EBS, cfg, sourceCfg, rdb, syncMetrics, logger)
	if err != nil {
		logger.Fatalf("Failed to configure EBS source: %v", err)
	}

	var history integration.HistoryStore = integration.NewMemoryHistory()
	var persister correlation.Persister = correlation.NewFilePersister(cfg.CorrelationFile)
	if cfg.DBConnectionString != "" {
		dbStore, err := db.NewPostgresStore(cfg.DBConnectionString, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		defer dbStore.Close()

		// Run migrations with retry logic
		if err := retry(3, 5*time.Second, dbStore.Migrate); err != nil {
			logger.Fatalf("Failed to run migrations after retries: %v", err)
		}
		history, persister = dbStore, dbStore
	}

	correlations := correlation.NewStore(persister, logger)
	if err := correlations.Load(ctx); err != nil {
		logger.Fatalf("Failed to load id correlations: %v", err)
	}

	manager := integration.NewManager(provider, history, correlations, logger)
	if err := manager.Restore(ctx); err != nil {
		logger.WithError(err).Warn("Failed to restore last sync times")
	}

	registry := mapping.NewDefaultRegistry()
	if err := registry.ApplyOverrides(integrationCfg.FieldMappings); err != nil {
		logger.Fatalf("Invalid field mappings: %v", err)
	}

	gate := validation.NewGate(logger)
	integration.RegisterChecks(gate, registry, p6, ebs)

	var locker lock.Locker = lock.NewMemoryLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, syncCfg.LockTTL, logger)
	}

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, nil))
	}

	runner := integration.NewRunner(integration.Deps{
		Manager:      manager,
		Gate:         gate,
		Locker:       locker,
		P6:           p6,
		EBS:          ebs,
		Registry:     registry,
		Transformer:  transform.NewService(registry, logger),
		Correlations: correlations,
		Provider:     provider,
		Notifier:     notifiers,
		Metrics:      syncMetrics,
		Config:       syncCfg,
		Logger:       logger,
	})

	sched := scheduler.New(runner.Run, manager.LastSyncTime, logger)
	sched.SkipUnchanged(runner.SyncNeeded)
	if err := sched.ScheduleAll(provider.Get()); err != nil {
		logger.WithError(err).Error("Some integrations could not be scheduled")
	}

	handler := api.NewHandler(api.Deps{
		Runner:       runner,
		Manager:      manager,
		Scheduler:    sched,
		Provider:     provider,
		Gate:         gate,
		Workspace:    reconcile.NewWorkspace(discrepancySetTTL),
		Correlations: correlations,
		Reports:      report.NewGenerator(cfg.ReportsDir, manager, ring, report.FileWriter{}, logger),
		Logs:         ring,
		Metrics:      syncMetrics,
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.SetupRouter(handler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":      cfg.Port,
			"simulator": cfg.Simulator,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	for _, t := range runner.Active() {
		runner.Cancel(t)
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Scheduler shutdown timed out")
	}
	if err := correlations.Save(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to save id correlations")
	}
	logger.Info("Server exited properly")
}

// buildSource creates the connector for one system wrapped in a circuit
// breaker and, when Redis is configured, a fetch cache
func buildSource(system models.System, params config.ConnectionParams, cfg *config.Config, sourceCfg *config.SourceConfig,
	rdb redis.UniversalClient, m *metrics.SyncMetrics, logger *logrus.Logger) (source.EntitySource, error) {
	var src source.EntitySource
	if cfg.Simulator {
		src = source.NewSeededSimulator(system)
	} else {
		var err error
		if src, err = source.New(system, params, sourceCfg, logger); err != nil {
			return nil, err
		}
	}

	src = source.NewBreakerSource(src, sourceCfg.Breaker, logger)
	if rdb != nil {
		src = source.NewCachedSource(src, rdb, sourceCfg.CacheTTL, m, logger)
	}
	return src, nil
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
