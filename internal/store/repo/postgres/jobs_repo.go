package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/instabrain/core/internal/domain"
)

// JobRepo persists outbound action jobs.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// Create stores a new job and returns its id (generates one if empty).
func (r *JobRepo) Create(ctx domain.Context, j domain.Job) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "jobs"),
	)
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO jobs (id, type, priority, account_ref, payload, idempotency_key, status, retry_count, created_at, updated_at, endpoint, source)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = r.Pool.Exec(ctx, q, id, string(j.Type), string(j.Priority), j.AccountRef, payload, nullable(j.IdempotencyKey), string(j.Status), j.RetryCount, now, now, nullable(j.Endpoint), nullable(j.Source))
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}

// UpdateStatus transitions a job's status.
func (r *JobRepo) UpdateStatus(ctx domain.Context, id string, status domain.JobStatus, errMsg *string) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "jobs"),
	)

	start := time.Now()
	q := `UPDATE jobs SET status=$1, last_error=$2, updated_at=$3 WHERE id=$4`
	if _, err := r.Pool.Exec(ctx, q, string(status), errMsg, time.Now().UTC(), id); err != nil {
		slog.Error("job status update failed", slog.String("job_id", id), slog.Any("error", err))
		return fmt.Errorf("op=job.update_status: %w", err)
	}
	slog.Info("job status updated", slog.String("job_id", id), slog.String("status", string(status)), slog.Duration("took", time.Since(start)))
	return nil
}

// IncrementRetry bumps a job's retry count and records the latest error.
func (r *JobRepo) IncrementRetry(ctx domain.Context, id string, errMsg string) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.IncrementRetry")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "jobs"),
	)
	q := `UPDATE jobs SET retry_count = retry_count + 1, last_error=$1, updated_at=$2 WHERE id=$3`
	if _, err := r.Pool.Exec(ctx, q, errMsg, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("op=job.increment_retry: %w", err)
	}
	return nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx domain.Context, id string) (domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "jobs"),
	)
	q := `SELECT id, type, priority, account_ref, payload, idempotency_key, status, retry_count, last_error, created_at, updated_at, endpoint, source
	      FROM jobs WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	return scanJob(row)
}

// FindByIdempotencyKey looks up a job by its idempotency key.
func (r *JobRepo) FindByIdempotencyKey(ctx domain.Context, key string) (domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.FindByIdempotencyKey")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "jobs"),
	)
	q := `SELECT id, type, priority, account_ref, payload, idempotency_key, status, retry_count, last_error, created_at, updated_at, endpoint, source
	      FROM jobs WHERE idempotency_key=$1`
	row := r.Pool.QueryRow(ctx, q, key)
	return scanJob(row)
}

// Count returns the total number of jobs.
func (r *JobRepo) Count(ctx domain.Context) (int64, error) {
	row := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("op=job.count: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of jobs in a given status.
func (r *JobRepo) CountByStatus(ctx domain.Context, status domain.JobStatus) (int64, error) {
	row := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE status=$1`, string(status))
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("op=job.count_by_status: %w", err)
	}
	return n, nil
}

func scanJob(row pgx.Row) (domain.Job, error) {
	var j domain.Job
	var jobType, priority, status string
	var payload []byte
	var idemKey *string
	var lastErr *string
	var endpoint *string
	var source *string
	if err := row.Scan(&j.ID, &jobType, &priority, &j.AccountRef, &payload, &idemKey, &status, &j.RetryCount, &lastErr, &j.CreatedAt, &j.UpdatedAt, &endpoint, &source); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.Job{}, fmt.Errorf("op=job.get: %w", err)
	}
	j.Type = domain.JobType(jobType)
	j.Priority = domain.JobPriority(priority)
	j.Status = domain.JobStatus(status)
	if idemKey != nil {
		j.IdempotencyKey = *idemKey
	}
	if lastErr != nil {
		j.LastError = *lastErr
	}
	if endpoint != nil {
		j.Endpoint = *endpoint
	}
	if source != nil {
		j.Source = *source
	}
	_ = json.Unmarshal(payload, &j.Payload)
	return j, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
