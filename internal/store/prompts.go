package store

import "github.com/instabrain/core/internal/domain"

type promptRepoPort interface {
	ActiveTemplates(ctx domain.Context) ([]domain.PromptTemplate, error)
}

// PromptStore is the resilient wrapper implementing domain.PromptRepository.
type PromptStore struct {
	repo promptRepoPort
	*resilience
}

func (s *PromptStore) ActiveTemplates(ctx domain.Context) ([]domain.PromptTemplate, error) {
	var out []domain.PromptTemplate
	err := s.withRetry(ctx, "prompts.active_templates", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.ActiveTemplates(ctx)
		return err
	})
	return out, err
}

var _ domain.PromptRepository = (*PromptStore)(nil)
