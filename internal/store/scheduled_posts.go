package store

import (
	"time"

	"github.com/instabrain/core/internal/domain"
)

type scheduledPostRepoPort interface {
	Create(ctx domain.Context, p domain.ScheduledPost) (string, error)
	UpdateStatus(ctx domain.Context, id, status string) error
	Get(ctx domain.Context, id string) (domain.ScheduledPost, error)
	DuePosts(ctx domain.Context, before time.Time) ([]domain.ScheduledPost, error)
}

// ScheduledPostStore is the resilient wrapper implementing domain.ScheduledPostRepository.
type ScheduledPostStore struct {
	repo scheduledPostRepoPort
	*resilience
}

func (s *ScheduledPostStore) Create(ctx domain.Context, p domain.ScheduledPost) (string, error) {
	var id string
	err := s.withRetry(ctx, "scheduled_posts.create", func(ctx domain.Context) error {
		var err error
		id, err = s.repo.Create(ctx, p)
		return err
	})
	return id, err
}

func (s *ScheduledPostStore) UpdateStatus(ctx domain.Context, id, status string) error {
	return s.withRetry(ctx, "scheduled_posts.update_status", func(ctx domain.Context) error {
		return s.repo.UpdateStatus(ctx, id, status)
	})
}

func (s *ScheduledPostStore) Get(ctx domain.Context, id string) (domain.ScheduledPost, error) {
	var p domain.ScheduledPost
	err := s.withRetry(ctx, "scheduled_posts.get", func(ctx domain.Context) error {
		var err error
		p, err = s.repo.Get(ctx, id)
		return err
	})
	return p, err
}

func (s *ScheduledPostStore) DuePosts(ctx domain.Context, before time.Time) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	err := s.withRetry(ctx, "scheduled_posts.due_posts", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.DuePosts(ctx, before)
		return err
	})
	return out, err
}

var _ domain.ScheduledPostRepository = (*ScheduledPostStore)(nil)
