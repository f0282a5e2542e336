package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/instabrain/core/internal/adapter/observability"
	"github.com/instabrain/core/internal/domain"
)

// executeJob runs the full pipeline for a single job. It never panics the
// caller and never returns an error — every outcome is routed through
// onSuccess/onFailure so the loop goroutine that spawned it stays simple.
func (p *Pool) executeJob(j domain.Job) {
	p.inFlight.Store(j.ID, struct{}{})
	defer p.inFlight.Delete(j.ID)

	ctx := context.Background()
	start := time.Now()

	observability.StartProcessingJob(string(j.Type))

	acquired, err := p.queue.AcquireExecutionLock(ctx, j.ID, p.cfg.LockTTL)
	if err != nil {
		slog.Error("worker lock acquire failed", slog.String("job_id", j.ID), slog.Any("error", err))
		return
	}
	if !acquired {
		slog.Info("job skipped, already executing elsewhere", slog.String("job_id", j.ID))
		return
	}

	if !p.isSafeToExecute(ctx, j) {
		slog.Info("job skipped by idempotency guard", slog.String("job_id", j.ID))
		if err := p.queue.ReleaseExecutionLock(ctx, j.ID); err != nil {
			slog.Warn("worker failed to release lock after idempotency skip", slog.String("job_id", j.ID), slog.Any("error", err))
		}
		return
	}

	err = p.backend.Execute(ctx, j)
	if err == nil {
		p.onSuccess(ctx, j, time.Since(start))
		return
	}
	p.onFailure(ctx, j, err)
}

// isSafeToExecute guards against double-publishing a post whose retry was
// raced by a concurrent attempt that already succeeded: only publish_post
// jobs are checked, and only when the referenced post is still marked
// "publishing". Any lookup failure fails open — publish anyway.
func (p *Pool) isSafeToExecute(ctx domain.Context, j domain.Job) bool {
	if j.Type != domain.JobTypePublishPost || p.posts == nil {
		return true
	}
	postID, _ := j.Payload["scheduled_post_id"].(string)
	if postID == "" {
		return true
	}
	post, err := p.posts.Get(ctx, postID)
	if err != nil {
		slog.Warn("idempotency check failed, allowing execution", slog.String("post_id", postID), slog.Any("error", err))
		return true
	}
	return post.Status == "publishing"
}

// onSuccess marks the job completed, settles publish_post state, releases
// the execution lock, and records an audit entry.
func (p *Pool) onSuccess(ctx domain.Context, j domain.Job, elapsed time.Duration) {
	observability.CompleteJob(string(j.Type))

	if j.Type == domain.JobTypePublishPost && p.posts != nil {
		if postID, _ := j.Payload["scheduled_post_id"].(string); postID != "" {
			if err := p.posts.UpdateStatus(ctx, postID, "published"); err != nil {
				slog.Warn("failed to settle publish_post success", slog.String("post_id", postID), slog.Any("error", err))
			}
		}
	}

	if err := p.queue.ReleaseExecutionLock(ctx, j.ID); err != nil {
		slog.Warn("worker failed to release lock on success", slog.String("job_id", j.ID), slog.Any("error", err))
	}

	if p.audit != nil {
		_, err := p.audit.Append(ctx, domain.AuditEntry{
			AccountRef: j.AccountRef,
			Component:  "worker:" + string(j.Type),
			Action:     "execute",
			Details: map[string]any{
				"job_id":      j.ID,
				"retry_count": j.RetryCount,
				"latency_ms":  elapsed.Milliseconds(),
				"endpoint":    j.Endpoint,
				"source":      j.Source,
			},
		})
		if err != nil {
			slog.Warn("worker failed to write audit entry", slog.String("job_id", j.ID), slog.Any("error", err))
		}
	}

	slog.Info("job completed", slog.String("job_id", j.ID), slog.String("type", string(j.Type)), slog.Duration("elapsed", elapsed))
}

// onFailure classifies the error and either schedules a retry or moves the
// job to the dead-letter queue, mirroring the category table: a
// non-retryable error skips the retry budget entirely, and a retryable
// error that has exhausted its budget also lands in the DLQ.
func (p *Pool) onFailure(ctx domain.Context, j domain.Job, execErr error) {
	var jerr *domain.JobError
	if !errors.As(execErr, &jerr) {
		jerr = &domain.JobError{Category: domain.CategoryUnknown, Retryable: true, Message: execErr.Error()}
	}

	j.RetryCount++
	j.LastError = jerr.Message
	observability.FailJob(string(j.Type), string(jerr.Category))

	if !jerr.Retryable {
		p.deadLetter(ctx, j, fmt.Sprintf("non_retryable:%s:%s", jerr.Category, jerr.Message))
		return
	}
	if domain.ShouldMoveToDLQ(j.RetryCount, jerr.Category) {
		p.deadLetter(ctx, j, fmt.Sprintf("max_retries_exceeded:%s:%s", jerr.Category, jerr.Message))
		return
	}

	delay := domain.NextRetryDelay(j.RetryCount, jerr.Category, jerr.RetryAfter)
	if err := p.queue.ScheduleRetry(ctx, j, delay); err != nil {
		slog.Error("worker failed to schedule retry", slog.String("job_id", j.ID), slog.Any("error", err))
	}
	if err := p.queue.ReleaseExecutionLock(ctx, j.ID); err != nil {
		slog.Warn("worker failed to release lock after scheduling retry", slog.String("job_id", j.ID), slog.Any("error", err))
	}
	slog.Warn("job failed, retry scheduled",
		slog.String("job_id", j.ID), slog.Int("retry_count", j.RetryCount),
		slog.Duration("delay", delay), slog.String("category", string(jerr.Category)))
}

func (p *Pool) deadLetter(ctx domain.Context, j domain.Job, reason string) {
	if err := p.queue.MoveToDLQ(ctx, j, reason); err != nil {
		slog.Error("worker failed to move job to dlq", slog.String("job_id", j.ID), slog.Any("error", err))
	}
	if err := p.queue.ReleaseExecutionLock(ctx, j.ID); err != nil {
		slog.Warn("worker failed to release lock after dlq", slog.String("job_id", j.ID), slog.Any("error", err))
	}
	observability.DeadLetterJob(string(j.Type))

	if j.Type == domain.JobTypePublishPost && p.posts != nil {
		if postID, _ := j.Payload["scheduled_post_id"].(string); postID != "" {
			if err := p.posts.UpdateStatus(ctx, postID, "failed"); err != nil {
				slog.Warn("failed to settle publish_post failure", slog.String("post_id", postID), slog.Any("error", err))
			}
		}
	}

	if p.audit != nil {
		_, err := p.audit.Append(ctx, domain.AuditEntry{
			AccountRef: j.AccountRef,
			Component:  "worker:" + string(j.Type),
			Action:     "dlq",
			Details: map[string]any{
				"job_id":        j.ID,
				"total_retries": j.RetryCount,
				"reason":        reason,
			},
		})
		if err != nil {
			slog.Warn("worker failed to write dlq audit entry", slog.String("job_id", j.ID), slog.Any("error", err))
		}
	}

	slog.Warn("job moved to dlq", slog.String("job_id", j.ID), slog.String("reason", reason))
}
