package store

import (
	"time"

	"github.com/instabrain/core/internal/domain"
)

type attributionRepoPort interface {
	CreateRecord(ctx domain.Context, r domain.AttributionRecord) (string, error)
	LatestWeights(ctx domain.Context) (domain.AttributionModelWeights, error)
	SaveWeights(ctx domain.Context, w domain.AttributionModelWeights) error
	RecentByAccount(ctx domain.Context, accountRef string, since time.Time) ([]domain.AttributionRecord, error)
}

// AttributionStore is the resilient wrapper implementing domain.AttributionRepository.
type AttributionStore struct {
	repo attributionRepoPort
	*resilience
}

func (s *AttributionStore) CreateRecord(ctx domain.Context, r domain.AttributionRecord) (string, error) {
	var id string
	err := s.withRetry(ctx, "attribution.create_record", func(ctx domain.Context) error {
		var err error
		id, err = s.repo.CreateRecord(ctx, r)
		return err
	})
	return id, err
}

func (s *AttributionStore) LatestWeights(ctx domain.Context) (domain.AttributionModelWeights, error) {
	var w domain.AttributionModelWeights
	err := s.withRetry(ctx, "attribution.latest_weights", func(ctx domain.Context) error {
		var err error
		w, err = s.repo.LatestWeights(ctx)
		return err
	})
	return w, err
}

func (s *AttributionStore) SaveWeights(ctx domain.Context, w domain.AttributionModelWeights) error {
	return s.withRetry(ctx, "attribution.save_weights", func(ctx domain.Context) error {
		return s.repo.SaveWeights(ctx, w)
	})
}

func (s *AttributionStore) RecentByAccount(ctx domain.Context, accountRef string, since time.Time) ([]domain.AttributionRecord, error) {
	var out []domain.AttributionRecord
	err := s.withRetry(ctx, "attribution.recent_by_account", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.RecentByAccount(ctx, accountRef, since)
		return err
	})
	return out, err
}

var _ domain.AttributionRepository = (*AttributionStore)(nil)
