package store

import (
	"time"

	"github.com/instabrain/core/internal/domain"
)

type commentRepoPort interface {
	Create(ctx domain.Context, c domain.InboundComment) (string, error)
	UnprocessedSince(ctx domain.Context, accountRef string, since time.Time, limit int) ([]domain.InboundComment, error)
	MarkProcessed(ctx domain.Context, id string) error
}

// CommentStore is the resilient wrapper implementing domain.CommentRepository.
type CommentStore struct {
	repo commentRepoPort
	*resilience
}

func (s *CommentStore) Create(ctx domain.Context, c domain.InboundComment) (string, error) {
	var id string
	err := s.withRetry(ctx, "comments.create", func(ctx domain.Context) error {
		var err error
		id, err = s.repo.Create(ctx, c)
		return err
	})
	return id, err
}

func (s *CommentStore) UnprocessedSince(ctx domain.Context, accountRef string, since time.Time, limit int) ([]domain.InboundComment, error) {
	var out []domain.InboundComment
	err := s.withRetry(ctx, "comments.unprocessed_since", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.UnprocessedSince(ctx, accountRef, since, limit)
		return err
	})
	return out, err
}

func (s *CommentStore) MarkProcessed(ctx domain.Context, id string) error {
	return s.withRetry(ctx, "comments.mark_processed", func(ctx domain.Context) error {
		return s.repo.MarkProcessed(ctx, id)
	})
}

var _ domain.CommentRepository = (*CommentStore)(nil)
