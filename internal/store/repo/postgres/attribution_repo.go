package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/instabrain/core/internal/domain"
)

// AttributionRepo persists attribution records and versioned model weights.
type AttributionRepo struct{ Pool PgxPool }

// NewAttributionRepo constructs an AttributionRepo.
func NewAttributionRepo(p PgxPool) *AttributionRepo { return &AttributionRepo{Pool: p} }

// CreateRecord stores one order's attribution touchpoints.
func (r *AttributionRepo) CreateRecord(ctx domain.Context, rec domain.AttributionRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	touchpoints, err := json.Marshal(rec.Touchpoints)
	if err != nil {
		return "", fmt.Errorf("op=attribution.create_record: %w", err)
	}
	q := `INSERT INTO attribution_records (id, order_id, account_ref, touchpoints, model_weights_version, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, rec.OrderID, rec.AccountRef, touchpoints, rec.ModelWeightsVersion, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=attribution.create_record: %w", err)
	}
	return id, nil
}

// LatestWeights returns the most recent attribution model weights version.
func (r *AttributionRepo) LatestWeights(ctx domain.Context) (domain.AttributionModelWeights, error) {
	row := r.Pool.QueryRow(ctx, `SELECT version, weights, computed_at FROM attribution_weights ORDER BY version DESC LIMIT 1`)
	var w domain.AttributionModelWeights
	var weights []byte
	if err := row.Scan(&w.Version, &weights, &w.ComputedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AttributionModelWeights{}, fmt.Errorf("op=attribution.latest_weights: %w", domain.ErrNotFound)
		}
		return domain.AttributionModelWeights{}, fmt.Errorf("op=attribution.latest_weights: %w", err)
	}
	_ = json.Unmarshal(weights, &w.Weights)
	return w, nil
}

// SaveWeights appends a new attribution model weights version. Previous
// versions are never overwritten so historical attribution stays reproducible.
func (r *AttributionRepo) SaveWeights(ctx domain.Context, w domain.AttributionModelWeights) error {
	weights, err := json.Marshal(w.Weights)
	if err != nil {
		return fmt.Errorf("op=attribution.save_weights: %w", err)
	}
	q := `INSERT INTO attribution_weights (version, weights, computed_at) VALUES ($1,$2,$3)`
	if _, err := r.Pool.Exec(ctx, q, w.Version, weights, w.ComputedAt); err != nil {
		return fmt.Errorf("op=attribution.save_weights: %w", err)
	}
	return nil
}

// RecentByAccount returns an account's attribution records created at or
// after since, for the weekly learning pipeline's lookback window.
func (r *AttributionRepo) RecentByAccount(ctx domain.Context, accountRef string, since time.Time) ([]domain.AttributionRecord, error) {
	q := `SELECT id, order_id, account_ref, touchpoints, model_weights_version, created_at
	      FROM attribution_records WHERE account_ref=$1 AND created_at >= $2
	      ORDER BY created_at ASC`
	rows, err := r.Pool.Query(ctx, q, accountRef, since)
	if err != nil {
		return nil, fmt.Errorf("op=attribution.recent_by_account: %w", err)
	}
	defer rows.Close()
	var out []domain.AttributionRecord
	for rows.Next() {
		var rec domain.AttributionRecord
		var touchpoints []byte
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.AccountRef, &touchpoints, &rec.ModelWeightsVersion, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=attribution.recent_by_account: %w", err)
		}
		_ = json.Unmarshal(touchpoints, &rec.Touchpoints)
		out = append(out, rec)
	}
	return out, rows.Err()
}
