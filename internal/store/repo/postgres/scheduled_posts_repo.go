package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/instabrain/core/internal/domain"
)

// ScheduledPostRepo persists content queued for future publication.
type ScheduledPostRepo struct{ Pool PgxPool }

// NewScheduledPostRepo constructs a ScheduledPostRepo.
func NewScheduledPostRepo(p PgxPool) *ScheduledPostRepo { return &ScheduledPostRepo{Pool: p} }

// Create stores a new scheduled post.
func (r *ScheduledPostRepo) Create(ctx domain.Context, p domain.ScheduledPost) (string, error) {
	tracer := otel.Tracer("repo.scheduled_posts")
	ctx, span := tracer.Start(ctx, "scheduled_posts.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("db.operation", "INSERT"), attribute.String("db.sql.table", "scheduled_posts"))
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO scheduled_posts (id, account_ref, asset_ref, caption, status, scheduled_at, source_ugc_id, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := r.Pool.Exec(ctx, q, id, p.AccountRef, p.AssetRef, p.Caption, p.Status, p.ScheduledAt, p.SourceUGCID, now, now); err != nil {
		return "", fmt.Errorf("op=scheduled_post.create: %w", err)
	}
	return id, nil
}

// UpdateStatus transitions a scheduled post's status.
func (r *ScheduledPostRepo) UpdateStatus(ctx domain.Context, id, status string) error {
	q := `UPDATE scheduled_posts SET status=$1, updated_at=$2 WHERE id=$3`
	if _, err := r.Pool.Exec(ctx, q, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("op=scheduled_post.update_status: %w", err)
	}
	return nil
}

// Get loads a scheduled post by id.
func (r *ScheduledPostRepo) Get(ctx domain.Context, id string) (domain.ScheduledPost, error) {
	q := `SELECT id, account_ref, asset_ref, caption, status, scheduled_at, published_at, source_ugc_id, created_at, updated_at
	      FROM scheduled_posts WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var p domain.ScheduledPost
	if err := row.Scan(&p.ID, &p.AccountRef, &p.AssetRef, &p.Caption, &p.Status, &p.ScheduledAt, &p.PublishedAt, &p.SourceUGCID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScheduledPost{}, fmt.Errorf("op=scheduled_post.get: %w", domain.ErrNotFound)
		}
		return domain.ScheduledPost{}, fmt.Errorf("op=scheduled_post.get: %w", err)
	}
	return p, nil
}

// DuePosts returns scheduled posts due for publication at or before the given time.
func (r *ScheduledPostRepo) DuePosts(ctx domain.Context, before time.Time) ([]domain.ScheduledPost, error) {
	q := `SELECT id, account_ref, asset_ref, caption, status, scheduled_at, published_at, source_ugc_id, created_at, updated_at
	      FROM scheduled_posts WHERE status='scheduled' AND scheduled_at <= $1 ORDER BY scheduled_at ASC`
	rows, err := r.Pool.Query(ctx, q, before)
	if err != nil {
		return nil, fmt.Errorf("op=scheduled_post.due_posts: %w", err)
	}
	defer rows.Close()
	var out []domain.ScheduledPost
	for rows.Next() {
		var p domain.ScheduledPost
		if err := rows.Scan(&p.ID, &p.AccountRef, &p.AssetRef, &p.Caption, &p.Status, &p.ScheduledAt, &p.PublishedAt, &p.SourceUGCID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=scheduled_post.due_posts: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
