package store

import (
	"time"

	"github.com/instabrain/core/internal/domain"
)

type auditRepoPort interface {
	Append(ctx domain.Context, e domain.AuditEntry) (string, error)
	RecentByAccount(ctx domain.Context, accountRef string, limit int) ([]domain.AuditEntry, error)
	ByRunID(ctx domain.Context, runID string) ([]domain.AuditEntry, error)
	Query(ctx domain.Context, component string, since time.Time, limit int) ([]domain.AuditEntry, error)
}

// AuditStore is the resilient wrapper implementing domain.AuditRepository.
type AuditStore struct {
	repo auditRepoPort
	*resilience
}

func (s *AuditStore) Append(ctx domain.Context, e domain.AuditEntry) (string, error) {
	var id string
	err := s.withRetry(ctx, "audit.append", func(ctx domain.Context) error {
		var err error
		id, err = s.repo.Append(ctx, e)
		return err
	})
	return id, err
}

func (s *AuditStore) RecentByAccount(ctx domain.Context, accountRef string, limit int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := s.withRetry(ctx, "audit.recent_by_account", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.RecentByAccount(ctx, accountRef, limit)
		return err
	})
	return out, err
}

func (s *AuditStore) ByRunID(ctx domain.Context, runID string) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := s.withRetry(ctx, "audit.by_run_id", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.ByRunID(ctx, runID)
		return err
	})
	return out, err
}

func (s *AuditStore) Query(ctx domain.Context, component string, since time.Time, limit int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := s.withRetry(ctx, "audit.query", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.Query(ctx, component, since, limit)
		return err
	})
	return out, err
}

var _ domain.AuditRepository = (*AuditStore)(nil)
