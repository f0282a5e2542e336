package store

import "github.com/instabrain/core/internal/domain"

type ugcRepoPort interface {
	Create(ctx domain.Context, u domain.UGCRecord) (string, error)
	ExistsBySourceMediaID(ctx domain.Context, accountRef, sourceMediaID string) (bool, error)
	UpdateStatus(ctx domain.Context, id, status string) error
	ApprovedByAccount(ctx domain.Context, accountRef string, limit int) ([]domain.UGCRecord, error)
}

// UGCStore is the resilient wrapper implementing domain.UGCRepository.
type UGCStore struct {
	repo ugcRepoPort
	*resilience
}

func (s *UGCStore) Create(ctx domain.Context, u domain.UGCRecord) (string, error) {
	var id string
	err := s.withRetry(ctx, "ugc.create", func(ctx domain.Context) error {
		var err error
		id, err = s.repo.Create(ctx, u)
		return err
	})
	return id, err
}

func (s *UGCStore) ExistsBySourceMediaID(ctx domain.Context, accountRef, sourceMediaID string) (bool, error) {
	var exists bool
	err := s.withRetry(ctx, "ugc.exists_by_source_media_id", func(ctx domain.Context) error {
		var err error
		exists, err = s.repo.ExistsBySourceMediaID(ctx, accountRef, sourceMediaID)
		return err
	})
	return exists, err
}

func (s *UGCStore) UpdateStatus(ctx domain.Context, id, status string) error {
	return s.withRetry(ctx, "ugc.update_status", func(ctx domain.Context) error {
		return s.repo.UpdateStatus(ctx, id, status)
	})
}

func (s *UGCStore) ApprovedByAccount(ctx domain.Context, accountRef string, limit int) ([]domain.UGCRecord, error) {
	var out []domain.UGCRecord
	err := s.withRetry(ctx, "ugc.approved_by_account", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.ApprovedByAccount(ctx, accountRef, limit)
		return err
	})
	return out, err
}

var _ domain.UGCRepository = (*UGCStore)(nil)
