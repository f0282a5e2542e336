// Command server starts the instabrain automation brain's HTTP surface:
// webhook ingestion, synchronous approvals, oversight chat, and scheduler
// control, plus the background scheduled-pipeline registry.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/instabrain/core/internal/adapter/ai/real"
	"github.com/instabrain/core/internal/adapter/ai/stub"
	"github.com/instabrain/core/internal/adapter/backend"
	"github.com/instabrain/core/internal/adapter/observability"
	"github.com/instabrain/core/internal/cache"
	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/httpserver"
	"github.com/instabrain/core/internal/llmgateway"
	"github.com/instabrain/core/internal/queue"
	"github.com/instabrain/core/internal/scheduled"
	"github.com/instabrain/core/internal/scheduler"
	"github.com/instabrain/core/internal/store"
	"github.com/instabrain/core/internal/store/repo/postgres"
	"github.com/instabrain/core/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
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

	localCache := cache.NewTwoTier(rdb, cfg.LocalCacheMax, cfg.LocalCacheTTL)
	q := queue.New(rdb, stClient.Jobs, stClient.PendingOutboundJobs)

	var aiClient domain.AIClient
	if cfg.LLMAPIKey == "" && cfg.IsDev() {
		slog.Warn("no LLM_API_KEY set in dev mode, using stub AI client")
		aiClient = stub.New()
	} else {
		aiClient = real.New(&cfg)
	}

	backendClient := backend.New(cfg.BackendBaseURL, cfg.BackendTimeout)

	catalogue := tools.New(tools.Deps{
		Accounts:    stClient.Accounts,
		Audit:       stClient.Audit,
		Posts:       stClient.ScheduledPosts,
		UGC:         stClient.UGC,
		Attribution: stClient.Attribution,
		Queue:       q,
	})
	gateway := llmgateway.New(aiClient, catalogue, &cfg)

	sched := scheduler.New(cfg.SchedulerMisfireGrace)
	schedDeps := scheduled.Deps{
		Accounts:       stClient.Accounts,
		Comments:       stClient.Comments,
		ScheduledPosts: stClient.ScheduledPosts,
		UGC:            stClient.UGC,
		Attribution:    stClient.Attribution,
		Audit:          stClient.Audit,
		Queue:          q,
		Cache:          localCache,
		Gateway:        gateway,
		Backend:        backendClient,
		Cfg:            cfg,
	}
	if err := scheduled.Register(sched, schedDeps, cfg); err != nil {
		slog.Error("scheduled pipeline registration failed", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := httpserver.NewServer(httpserver.Deps{
		Cfg:            cfg,
		Gateway:        gateway,
		Sched:          sched,
		Queue:          q,
		Audit:          stClient.Audit,
		Accounts:       stClient.Accounts,
		Posts:          stClient.ScheduledPosts,
		UGC:            stClient.UGC,
		Attribution:    stClient.Attribution,
		OversightCache: localCache,
	})

	handler := httpserver.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
