package store

import "github.com/instabrain/core/internal/domain"

type pendingOutboundJobRepoPort interface {
	Stage(ctx domain.Context, j domain.Job) error
	Delete(ctx domain.Context, id string) error
	OldestBatch(ctx domain.Context, priority domain.JobPriority, limit int) ([]domain.Job, error)
}

// PendingOutboundJobStore is the resilient wrapper implementing
// domain.PendingOutboundJobRepository.
type PendingOutboundJobStore struct {
	repo pendingOutboundJobRepoPort
	*resilience
}

func (s *PendingOutboundJobStore) Stage(ctx domain.Context, j domain.Job) error {
	return s.withRetry(ctx, "pending_outbound_jobs.stage", func(ctx domain.Context) error {
		return s.repo.Stage(ctx, j)
	})
}

func (s *PendingOutboundJobStore) Delete(ctx domain.Context, id string) error {
	return s.withRetry(ctx, "pending_outbound_jobs.delete", func(ctx domain.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

func (s *PendingOutboundJobStore) OldestBatch(ctx domain.Context, priority domain.JobPriority, limit int) ([]domain.Job, error) {
	var jobs []domain.Job
	err := s.withRetry(ctx, "pending_outbound_jobs.oldest_batch", func(ctx domain.Context) error {
		var err error
		jobs, err = s.repo.OldestBatch(ctx, priority, limit)
		return err
	})
	return jobs, err
}

var _ domain.PendingOutboundJobRepository = (*PendingOutboundJobStore)(nil)
