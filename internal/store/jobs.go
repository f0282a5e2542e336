package store

import "github.com/instabrain/core/internal/domain"

type jobRepoPort interface {
	Create(ctx domain.Context, j domain.Job) (string, error)
	UpdateStatus(ctx domain.Context, id string, status domain.JobStatus, errMsg *string) error
	IncrementRetry(ctx domain.Context, id string, errMsg string) error
	Get(ctx domain.Context, id string) (domain.Job, error)
	FindByIdempotencyKey(ctx domain.Context, key string) (domain.Job, error)
	Count(ctx domain.Context) (int64, error)
	CountByStatus(ctx domain.Context, status domain.JobStatus) (int64, error)
}

// JobStore is the resilient wrapper implementing domain.JobRepository.
type JobStore struct {
	repo jobRepoPort
	*resilience
}

func (s *JobStore) Create(ctx domain.Context, j domain.Job) (string, error) {
	var id string
	err := s.withRetry(ctx, "jobs.create", func(ctx domain.Context) error {
		var err error
		id, err = s.repo.Create(ctx, j)
		return err
	})
	return id, err
}

func (s *JobStore) UpdateStatus(ctx domain.Context, id string, status domain.JobStatus, errMsg *string) error {
	return s.withRetry(ctx, "jobs.update_status", func(ctx domain.Context) error {
		return s.repo.UpdateStatus(ctx, id, status, errMsg)
	})
}

func (s *JobStore) IncrementRetry(ctx domain.Context, id string, errMsg string) error {
	return s.withRetry(ctx, "jobs.increment_retry", func(ctx domain.Context) error {
		return s.repo.IncrementRetry(ctx, id, errMsg)
	})
}

func (s *JobStore) Get(ctx domain.Context, id string) (domain.Job, error) {
	var j domain.Job
	err := s.withRetry(ctx, "jobs.get", func(ctx domain.Context) error {
		var err error
		j, err = s.repo.Get(ctx, id)
		return err
	})
	return j, err
}

func (s *JobStore) FindByIdempotencyKey(ctx domain.Context, key string) (domain.Job, error) {
	var j domain.Job
	err := s.withRetry(ctx, "jobs.find_by_idempotency_key", func(ctx domain.Context) error {
		var err error
		j, err = s.repo.FindByIdempotencyKey(ctx, key)
		return err
	})
	return j, err
}

func (s *JobStore) Count(ctx domain.Context) (int64, error) {
	var n int64
	err := s.withRetry(ctx, "jobs.count", func(ctx domain.Context) error {
		var err error
		n, err = s.repo.Count(ctx)
		return err
	})
	return n, err
}

func (s *JobStore) CountByStatus(ctx domain.Context, status domain.JobStatus) (int64, error) {
	var n int64
	err := s.withRetry(ctx, "jobs.count_by_status", func(ctx domain.Context) error {
		var err error
		n, err = s.repo.CountByStatus(ctx, status)
		return err
	})
	return n, err
}

var _ domain.JobRepository = (*JobStore)(nil)
