// Package scheduled implements §4.6's five batch pipelines — the engagement
// monitor, content scheduler, UGC discovery, weekly attribution learning,
// and analytics reports — plus the heartbeat sender, and wires all six into
// a scheduler.Registry. Every pipeline fans out across active accounts with
// bounded concurrency and per-account error isolation: one account's
// failure never aborts the batch, it's logged and the cycle continues.
package scheduled

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// Deps bundles every port a scheduled pipeline run might need. Not every
// pipeline uses every field.
type Deps struct {
	Accounts       domain.AccountRepository
	Comments       domain.CommentRepository
	ScheduledPosts domain.ScheduledPostRepository
	UGC            domain.UGCRepository
	Attribution    domain.AttributionRepository
	Audit          domain.AuditRepository
	Queue          domain.Queue
	Cache          domain.Cache
	Gateway        *llmgateway.Gateway
	Backend        domain.BackendReader
	Cfg            config.Config
}

// batchStats aggregates one cycle's per-account outcomes, mirroring the
// batch_stats dict every original Python runner logs at the end of a run.
type batchStats struct {
	Processed int
	Saved     int
	LLMUsed   int
	Errors    int
}

func newRunID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))) //nolint:gosec // weak random is fine for a run id
	if err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return id.String()
}

// fanoutAccounts runs fn once per account, bounded to concurrency accounts
// in flight at a time via a weighted semaphore — the same bounded-fan-out
// shape the original scheduler used an asyncio.Semaphore for. Each
// account's outcome is isolated: fn itself must recover its own errors and
// report them through ok=false, so one bad account never aborts the batch.
func fanoutAccounts(ctx context.Context, accounts []domain.Account, concurrency int, fn func(domain.Account) (ok bool, usedLLM bool)) batchStats {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make(chan struct{ ok, llm bool }, len(accounts))

	for _, acct := range accounts {
		acct := acct
		if err := sem.Acquire(ctx, 1); err != nil {
			results <- struct{ ok, llm bool }{false, false}
			continue
		}
		go func() {
			defer sem.Release(1)
			ok, llm := fn(acct)
			results <- struct{ ok, llm bool }{ok, llm}
		}()
	}

	var stats batchStats
	for range accounts {
		r := <-results
		stats.Processed++
		if r.ok {
			stats.Saved++
		} else {
			stats.Errors++
		}
		if r.llm {
			stats.LLMUsed++
		}
	}
	return stats
}
