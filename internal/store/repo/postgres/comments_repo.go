package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/instabrain/core/internal/domain"
)

// CommentRepo persists the engagement monitor's comment backlog — distinct
// from the webhook real-time path, which never touches this table.
type CommentRepo struct{ Pool PgxPool }

// NewCommentRepo constructs a CommentRepo.
func NewCommentRepo(p PgxPool) *CommentRepo { return &CommentRepo{Pool: p} }

// Create stages an inbound comment as unprocessed.
func (r *CommentRepo) Create(ctx domain.Context, c domain.InboundComment) (string, error) {
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO inbound_comments (id, account_ref, media_id, text, username, timestamp, created_at, processed)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,false)
	      ON CONFLICT (id) DO NOTHING`
	if _, err := r.Pool.Exec(ctx, q, id, c.AccountRef, c.MediaID, c.Text, c.Username, c.Timestamp, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=comment.create: %w", err)
	}
	return id, nil
}

// UnprocessedSince returns an account's oldest-first unprocessed comments
// created at or after since, capped at limit.
func (r *CommentRepo) UnprocessedSince(ctx domain.Context, accountRef string, since time.Time, limit int) ([]domain.InboundComment, error) {
	q := `SELECT id, account_ref, media_id, text, username, timestamp, created_at
	      FROM inbound_comments
	      WHERE account_ref=$1 AND processed=false AND created_at >= $2
	      ORDER BY created_at ASC LIMIT $3`
	rows, err := r.Pool.Query(ctx, q, accountRef, since, limit)
	if err != nil {
		return nil, fmt.Errorf("op=comment.unprocessed_since: %w", err)
	}
	defer rows.Close()
	var out []domain.InboundComment
	for rows.Next() {
		var c domain.InboundComment
		if err := rows.Scan(&c.ID, &c.AccountRef, &c.MediaID, &c.Text, &c.Username, &c.Timestamp, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=comment.unprocessed_since: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkProcessed flips a comment's processed flag so later cycles skip it —
// the authoritative half of the monitor's two-layer dedup (the hot cache
// set is the other half).
func (r *CommentRepo) MarkProcessed(ctx domain.Context, id string) error {
	q := `UPDATE inbound_comments SET processed=true WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("op=comment.mark_processed: %w", err)
	}
	return nil
}
