// Package queue implements the durable outbound action queue: two
// priority lanes plus a scheduled-retry set and a dead-letter set, backed
// by Redis with a Postgres fallback for when Redis is unreachable.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/instabrain/core/internal/domain"
)

const (
	keyHigh      = "outbound:queue:high"
	keyNormal    = "outbound:queue:normal"
	keyScheduled = "outbound:queue:scheduled"
	keyDLQ       = "outbound:dlq"
	lockPrefix   = "outbound:lock:"
)

// ledger is the subset of domain.JobRepository the queue needs: the
// lifecycle record every job carries independent of where it currently
// sits (Redis lane, scheduled set, or pending-staging fallback table).
type ledger interface {
	Create(ctx domain.Context, j domain.Job) (string, error)
	UpdateStatus(ctx domain.Context, id string, status domain.JobStatus, errMsg *string) error
	FindByIdempotencyKey(ctx domain.Context, key string) (domain.Job, error)
}

// RedisQueue implements domain.Queue. Redis is the fast path; every write
// also lands in the job ledger first so a Redis outage loses nothing,
// only throughput — jobs that can't reach Redis at enqueue time are
// staged in domain.PendingOutboundJobRepository and promoted later by
// DrainStoreFallback.
type RedisQueue struct {
	redis   *redis.Client
	jobs    ledger
	pending domain.PendingOutboundJobRepository

	moveScheduledScript *redis.Script
}

// New constructs a RedisQueue. jobs is typically *store.Client.Jobs and
// pending is typically *store.Client.PendingOutboundJobs.
func New(rdb *redis.Client, jobs ledger, pending domain.PendingOutboundJobRepository) *RedisQueue {
	return &RedisQueue{
		redis:               rdb,
		jobs:                jobs,
		pending:             pending,
		moveScheduledScript: redis.NewScript(moveScheduledLua),
	}
}

func queueKey(priority domain.JobPriority) string {
	if priority == domain.PriorityHigh {
		return keyHigh
	}
	return keyNormal
}

func lockKey(jobID string) string { return lockPrefix + jobID }

// Enqueue records the job in the ledger, then pushes it onto its priority
// lane. If the Redis push fails, the job is staged in the pending-fallback
// table instead of being lost. A job whose idempotency key already exists
// is returned as a conflict rather than enqueued twice.
func (q *RedisQueue) Enqueue(ctx domain.Context, j domain.Job) (string, error) {
	if j.IdempotencyKey != "" {
		if existing, err := q.jobs.FindByIdempotencyKey(ctx, j.IdempotencyKey); err == nil {
			return existing.ID, fmt.Errorf("op=queue.enqueue job=%s: %w", existing.ID, domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("op=queue.enqueue: %w", err)
		}
	}
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.Status == "" {
		j.Status = domain.JobQueued
	}
	id, err := q.jobs.Create(ctx, j)
	if err != nil {
		return "", fmt.Errorf("op=queue.enqueue: %w", err)
	}
	j.ID = id

	payload, err := json.Marshal(j)
	if err != nil {
		return id, fmt.Errorf("op=queue.enqueue job=%s: %w", id, err)
	}
	if err := q.redis.LPush(ctx, queueKey(j.Priority), payload).Err(); err != nil {
		slog.Warn("queue redis lpush failed, staging to pending fallback", slog.String("job_id", id), slog.Any("error", err))
		if serr := q.pending.Stage(ctx, j); serr != nil {
			return id, fmt.Errorf("op=queue.enqueue job=%s: %w", id, serr)
		}
	}
	return id, nil
}

// Dequeue pops the next job off a priority lane, falling back to the
// pending-staging table when Redis is empty or unavailable.
func (q *RedisQueue) Dequeue(ctx domain.Context, priority domain.JobPriority) (*domain.Job, error) {
	raw, err := q.redis.RPop(ctx, queueKey(priority)).Result()
	if err == nil {
		var j domain.Job
		if uerr := json.Unmarshal([]byte(raw), &j); uerr != nil {
			return nil, fmt.Errorf("op=queue.dequeue: %w", uerr)
		}
		return &j, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("queue redis rpop failed, falling back to pending staging table", slog.Any("error", err))
	}

	staged, ferr := q.pending.OldestBatch(ctx, priority, 1)
	if ferr != nil {
		return nil, fmt.Errorf("op=queue.dequeue: %w", ferr)
	}
	if len(staged) == 0 {
		return nil, nil
	}
	j := staged[0]
	if derr := q.pending.Delete(ctx, j.ID); derr != nil {
		slog.Warn("queue failed to clear staged row after direct dequeue", slog.String("job_id", j.ID), slog.Any("error", derr))
	}
	return &j, nil
}

// AcquireExecutionLock sets a per-job mutex, failing open (returning true)
// when Redis is unreachable so a worker outage never blocks execution.
func (q *RedisQueue) AcquireExecutionLock(ctx domain.Context, jobID string, ttl time.Duration) (bool, error) {
	ok, err := q.redis.SetNX(ctx, lockKey(jobID), "1", ttl).Result()
	if err != nil {
		slog.Warn("queue lock acquire failed, failing open", slog.String("job_id", jobID), slog.Any("error", err))
		return true, nil
	}
	return ok, nil
}

// ReleaseExecutionLock clears a job's execution mutex.
func (q *RedisQueue) ReleaseExecutionLock(ctx domain.Context, jobID string) error {
	if err := q.redis.Del(ctx, lockKey(jobID)).Err(); err != nil {
		return fmt.Errorf("op=queue.release_lock job=%s: %w", jobID, err)
	}
	return nil
}

var _ domain.Queue = (*RedisQueue)(nil)
