package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/instabrain/core/internal/domain"
)

// AuditRepo is the append-only audit log backing the oversight explainability component.
type AuditRepo struct{ Pool PgxPool }

// NewAuditRepo constructs an AuditRepo.
func NewAuditRepo(p PgxPool) *AuditRepo { return &AuditRepo{Pool: p} }

// Append writes one audit entry and returns its id.
func (r *AuditRepo) Append(ctx domain.Context, e domain.AuditEntry) (string, error) {
	tracer := otel.Tracer("repo.audit")
	ctx, span := tracer.Start(ctx, "audit.Append")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "audit_log"),
	)
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return "", fmt.Errorf("op=audit.append: %w", err)
	}
	q := `INSERT INTO audit_log (id, run_id, account_ref, component, action, details, needs_human, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := r.Pool.Exec(ctx, q, id, e.RunID, e.AccountRef, e.Component, e.Action, details, e.NeedsHuman, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=audit.append: %w", err)
	}
	return id, nil
}

// RecentByAccount returns the most recent audit entries for an account, newest first.
func (r *AuditRepo) RecentByAccount(ctx domain.Context, accountRef string, limit int) ([]domain.AuditEntry, error) {
	q := `SELECT id, run_id, account_ref, component, action, details, needs_human, created_at
	      FROM audit_log WHERE account_ref=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, accountRef, limit)
	if err != nil {
		return nil, fmt.Errorf("op=audit.recent_by_account: %w", err)
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// ByRunID returns every audit entry sharing a run id, in chronological order.
func (r *AuditRepo) ByRunID(ctx domain.Context, runID string) ([]domain.AuditEntry, error) {
	q := `SELECT id, run_id, account_ref, component, action, details, needs_human, created_at
	      FROM audit_log WHERE run_id=$1 ORDER BY created_at ASC`
	rows, err := r.Pool.Query(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("op=audit.by_run_id: %w", err)
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// Query returns recent entries for a component since a timestamp, used by
// the oversight brain to auto-assemble context for a question.
func (r *AuditRepo) Query(ctx domain.Context, component string, since time.Time, limit int) ([]domain.AuditEntry, error) {
	q := `SELECT id, run_id, account_ref, component, action, details, needs_human, created_at
	      FROM audit_log WHERE component=$1 AND created_at >= $2 ORDER BY created_at DESC LIMIT $3`
	rows, err := r.Pool.Query(ctx, q, component, since, limit)
	if err != nil {
		return nil, fmt.Errorf("op=audit.query: %w", err)
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAuditEntries(rows pgxRows) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.AccountRef, &e.Component, &e.Action, &details, &e.NeedsHuman, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=audit.scan: %w", err)
		}
		_ = json.Unmarshal(details, &e.Details)
		out = append(out, e)
	}
	return out, rows.Err()
}
