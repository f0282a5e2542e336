// Package store wraps the PostgreSQL repository adapters with the retry,
// circuit-breaker, and telemetry wrapper every store call goes through,
// so usecases and pipelines talk to plain domain ports and never see a
// pgx error directly.
package store

import (
	"time"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/observability"
	"github.com/instabrain/core/internal/store/repo/postgres"
)

// resilience is embedded into every entity wrapper below; it holds the
// shared circuit breaker (one underlying database, one breaker) and the
// retry policy read from config.
type resilience struct {
	oc            *observability.ObservableClient
	retryAttempts int
	retryDelay    time.Duration
}

func (r *resilience) withRetry(ctx domain.Context, op string, fn func(domain.Context) error) error {
	return r.oc.ExecuteWithRetry(ctx, op, fn, r.retryAttempts, r.retryDelay)
}

// Client aggregates one resilient wrapper per domain repository port. Each
// field implements the corresponding domain.*Repository interface.
type Client struct {
	Jobs               *JobStore
	ScheduledPosts     *ScheduledPostStore
	UGC                *UGCStore
	Attribution        *AttributionStore
	Audit              *AuditStore
	Accounts           *AccountStore
	Prompts            *PromptStore
	PendingOutboundJobs *PendingOutboundJobStore
	Comments           *CommentStore

	shared *resilience
}

// NewClient builds a Client over the given pool, wrapping every method with
// the retry + circuit breaker policy from cfg's store client resilience
// settings.
func NewClient(pool postgres.PgxPool, cfg config.Config) *Client {
	oc := observability.NewObservableClient(
		observability.ConnectionTypeDatabase,
		observability.OperationTypeQuery,
		"postgres",
		cfg.StoreRetryMaxDelay, cfg.StoreRetryInitialDelay, cfg.StoreRetryMaxDelay,
	)
	oc.CircuitBreaker = observability.NewCircuitBreaker(cfg.StoreBreakerThreshold, cfg.StoreBreakerRecovery, 0.5)

	// ExecuteWithRetry takes a retry count; StoreRetryAttempts counts attempts.
	retries := cfg.StoreRetryAttempts - 1
	if retries < 0 {
		retries = 0
	}
	shared := &resilience{oc: oc, retryAttempts: retries, retryDelay: cfg.StoreRetryInitialDelay}

	return &Client{
		Jobs:           &JobStore{repo: postgres.NewJobRepo(pool), resilience: shared},
		ScheduledPosts: &ScheduledPostStore{repo: postgres.NewScheduledPostRepo(pool), resilience: shared},
		UGC:            &UGCStore{repo: postgres.NewUGCRepo(pool), resilience: shared},
		Attribution:    &AttributionStore{repo: postgres.NewAttributionRepo(pool), resilience: shared},
		Audit:          &AuditStore{repo: postgres.NewAuditRepo(pool), resilience: shared},
		Accounts:       &AccountStore{repo: postgres.NewAccountRepo(pool), resilience: shared},
		Prompts:        &PromptStore{repo: postgres.NewPromptRepo(pool), resilience: shared},
		PendingOutboundJobs: &PendingOutboundJobStore{repo: postgres.NewPendingOutboundJobRepo(pool), resilience: shared},
		Comments:       &CommentStore{repo: postgres.NewCommentRepo(pool), resilience: shared},
		shared:         shared,
	}
}

// IsHealthy reports whether the store's circuit breaker currently allows
// traffic — surfaced on the readiness endpoint.
func (c *Client) IsHealthy() bool { return c.shared.oc.IsHealthy() }

// HealthStatus returns the underlying connection metrics, circuit breaker
// state, and adaptive timeout stats for the readiness/status endpoints.
func (c *Client) HealthStatus() map[string]interface{} { return c.shared.oc.GetHealthStatus() }
