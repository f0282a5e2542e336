package store

import "github.com/instabrain/core/internal/domain"

type accountRepoPort interface {
	Get(ctx domain.Context, ref string) (domain.Account, error)
	ActiveAccounts(ctx domain.Context) ([]domain.Account, error)
}

// AccountStore is the resilient wrapper implementing domain.AccountRepository.
type AccountStore struct {
	repo accountRepoPort
	*resilience
}

func (s *AccountStore) Get(ctx domain.Context, ref string) (domain.Account, error) {
	var a domain.Account
	err := s.withRetry(ctx, "accounts.get", func(ctx domain.Context) error {
		var err error
		a, err = s.repo.Get(ctx, ref)
		return err
	})
	return a, err
}

func (s *AccountStore) ActiveAccounts(ctx domain.Context) ([]domain.Account, error) {
	var out []domain.Account
	err := s.withRetry(ctx, "accounts.active_accounts", func(ctx domain.Context) error {
		var err error
		out, err = s.repo.ActiveAccounts(ctx)
		return err
	})
	return out, err
}

var _ domain.AccountRepository = (*AccountStore)(nil)
