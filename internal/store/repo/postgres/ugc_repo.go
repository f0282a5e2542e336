package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/instabrain/core/internal/domain"
)

// UGCRepo persists discovered user-generated content.
type UGCRepo struct{ Pool PgxPool }

// NewUGCRepo constructs a UGCRepo.
func NewUGCRepo(p PgxPool) *UGCRepo { return &UGCRepo{Pool: p} }

// Create stores a newly discovered UGC record.
func (r *UGCRepo) Create(ctx domain.Context, u domain.UGCRecord) (string, error) {
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO ugc_records (id, account_ref, source_media_id, author_handle, asset_url, caption, status, discovered_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := r.Pool.Exec(ctx, q, id, u.AccountRef, u.SourceMediaID, u.AuthorHandle, u.AssetURL, u.Caption, u.Status, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=ugc.create: %w", err)
	}
	return id, nil
}

// ExistsBySourceMediaID is the dedup check the UGC discovery pipeline runs
// before inserting a candidate a second time.
func (r *UGCRepo) ExistsBySourceMediaID(ctx domain.Context, accountRef, sourceMediaID string) (bool, error) {
	row := r.Pool.QueryRow(ctx, `SELECT 1 FROM ugc_records WHERE account_ref=$1 AND source_media_id=$2`, accountRef, sourceMediaID)
	var x int
	if err := row.Scan(&x); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("op=ugc.exists: %w", err)
	}
	return true, nil
}

// UpdateStatus transitions a UGC record's status (discovered/approved/reposted/rejected).
func (r *UGCRepo) UpdateStatus(ctx domain.Context, id, status string) error {
	if _, err := r.Pool.Exec(ctx, `UPDATE ugc_records SET status=$1 WHERE id=$2`, status, id); err != nil {
		return fmt.Errorf("op=ugc.update_status: %w", err)
	}
	return nil
}

// ApprovedByAccount returns the account's approved, not-yet-reposted UGC,
// newest first — the content scheduler's repost asset pool.
func (r *UGCRepo) ApprovedByAccount(ctx domain.Context, accountRef string, limit int) ([]domain.UGCRecord, error) {
	q := `SELECT id, account_ref, source_media_id, author_handle, asset_url, caption, status, discovered_at
	      FROM ugc_records WHERE account_ref=$1 AND status='approved'
	      ORDER BY discovered_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, accountRef, limit)
	if err != nil {
		return nil, fmt.Errorf("op=ugc.approved_by_account: %w", err)
	}
	defer rows.Close()
	var out []domain.UGCRecord
	for rows.Next() {
		var u domain.UGCRecord
		if err := rows.Scan(&u.ID, &u.AccountRef, &u.SourceMediaID, &u.AuthorHandle, &u.AssetURL, &u.Caption, &u.Status, &u.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("op=ugc.approved_by_account: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
