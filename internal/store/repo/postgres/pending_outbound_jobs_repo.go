package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/instabrain/core/internal/domain"
)

// PendingOutboundJobRepo persists jobs the outbound queue could not push to
// Redis at enqueue time. It's staging only — a job here is promoted to
// Redis and deleted by the queue's scheduled-retry loop, never executed
// directly from this table.
type PendingOutboundJobRepo struct{ Pool PgxPool }

// NewPendingOutboundJobRepo constructs a PendingOutboundJobRepo.
func NewPendingOutboundJobRepo(p PgxPool) *PendingOutboundJobRepo { return &PendingOutboundJobRepo{Pool: p} }

// Stage inserts a job's staged row; if a row with the same id is already
// staged, only its status and updated_at are refreshed.
func (r *PendingOutboundJobRepo) Stage(ctx domain.Context, j domain.Job) error {
	tracer := otel.Tracer("repo.pending_outbound_jobs")
	ctx, span := tracer.Start(ctx, "pending_outbound_jobs.Stage")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "pending_outbound_jobs"),
	)
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("op=pending_outbound_jobs.stage: %w", err)
	}
	q := `INSERT INTO pending_outbound_jobs (id, type, priority, account_ref, payload, idempotency_key, status, retry_count, created_at, updated_at, endpoint, source)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	      ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	_, err = r.Pool.Exec(ctx, q, j.ID, string(j.Type), string(j.Priority), j.AccountRef, payload, nullable(j.IdempotencyKey), string(j.Status), j.RetryCount, now, now, nullable(j.Endpoint), nullable(j.Source))
	if err != nil {
		return fmt.Errorf("op=pending_outbound_jobs.stage: %w", err)
	}
	return nil
}

// Delete removes a staged row once it has been promoted to Redis.
func (r *PendingOutboundJobRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.pending_outbound_jobs")
	ctx, span := tracer.Start(ctx, "pending_outbound_jobs.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "pending_outbound_jobs"),
	)
	if _, err := r.Pool.Exec(ctx, `DELETE FROM pending_outbound_jobs WHERE id=$1`, id); err != nil {
		return fmt.Errorf("op=pending_outbound_jobs.delete: %w", err)
	}
	return nil
}

// OldestBatch returns up to limit staged jobs for a priority lane, oldest first.
func (r *PendingOutboundJobRepo) OldestBatch(ctx domain.Context, priority domain.JobPriority, limit int) ([]domain.Job, error) {
	tracer := otel.Tracer("repo.pending_outbound_jobs")
	ctx, span := tracer.Start(ctx, "pending_outbound_jobs.OldestBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "pending_outbound_jobs"),
	)
	q := `SELECT id, type, priority, account_ref, payload, idempotency_key, status, retry_count, last_error, created_at, updated_at, endpoint, source
	      FROM pending_outbound_jobs WHERE priority=$1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, string(priority), limit)
	if err != nil {
		return nil, fmt.Errorf("op=pending_outbound_jobs.oldest_batch: %w", err)
	}
	defer rows.Close()
	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("op=pending_outbound_jobs.oldest_batch: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=pending_outbound_jobs.oldest_batch: %w", err)
	}
	return out, nil
}

var _ domain.PendingOutboundJobRepository = (*PendingOutboundJobRepo)(nil)
