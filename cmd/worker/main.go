// Package main provides the worker application entry point.
// The worker drains the outbound action queue's priority lanes and
// scheduled-retry backlog, executing jobs against the backend proxy.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/instabrain/core/internal/adapter/backend"
	"github.com/instabrain/core/internal/adapter/observability"
	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/queue"
	"github.com/instabrain/core/internal/store"
	"github.com/instabrain/core/internal/store/repo/postgres"
	"github.com/instabrain/core/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	stClient := store.NewClient(pool, cfg)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis url", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	q := queue.New(rdb, stClient.Jobs, stClient.PendingOutboundJobs)
	backendClient := backend.New(cfg.BackendBaseURL, cfg.BackendTimeout)

	pool2 := worker.New(q, backendClient, stClient.ScheduledPosts, stClient.Audit, worker.Config{
		HighPollInterval:     cfg.QueueHighPollInterval,
		NormalPollInterval:   cfg.QueueNormalPollInterval,
		NormalPollStagger:    cfg.QueueNormalPollStagger,
		ScheduledDrainPeriod: cfg.QueueScheduledDrainPeriod,
		LockTTL:              cfg.QueueLockTTL,
		StoreDrainBatch:      cfg.QueueStoreDrainBatch,
		ShutdownGrace:        cfg.WorkerShutdownGrace,
	})
	pool2.Start()

	slog.Info("worker started successfully, waiting for shutdown signal")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	pool2.Stop()
	slog.Info("worker stopped")
}
