package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/instabrain/core/internal/domain"
)

// AccountRepo loads tracked Instagram business accounts and their feature gates.
type AccountRepo struct{ Pool PgxPool }

// NewAccountRepo constructs an AccountRepo.
func NewAccountRepo(p PgxPool) *AccountRepo { return &AccountRepo{Pool: p} }

// Get loads a single account by its reference.
func (r *AccountRepo) Get(ctx domain.Context, ref string) (domain.Account, error) {
	q := `SELECT account_ref, instagram_business_id, display_name, access_token_ref, active,
	      engagement_auto_reply_on, auto_publish_on, auto_repost_on, monitored_hashtags, created_at
	      FROM accounts WHERE account_ref=$1`
	row := r.Pool.QueryRow(ctx, q, ref)
	return scanAccount(row)
}

// ActiveAccounts returns every account with active=true, the fan-out unit
// every scheduled pipeline iterates over.
func (r *AccountRepo) ActiveAccounts(ctx domain.Context) ([]domain.Account, error) {
	q := `SELECT account_ref, instagram_business_id, display_name, access_token_ref, active,
	      engagement_auto_reply_on, auto_publish_on, auto_repost_on, monitored_hashtags, created_at
	      FROM accounts WHERE active=true`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=account.active_accounts: %w", err)
	}
	defer rows.Close()
	var out []domain.Account
	for rows.Next() {
		a, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var hashtags string
	if err := row.Scan(&a.Ref, &a.InstagramBusinessID, &a.DisplayName, &a.AccessTokenRef, &a.Active,
		&a.EngagementAutoReplyOn, &a.AutoPublishOn, &a.AutoRepostOn, &hashtags, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("op=account.get: %w", domain.ErrNotFound)
		}
		return domain.Account{}, fmt.Errorf("op=account.get: %w", err)
	}
	a.MonitoredHashtags = splitNonEmpty(hashtags)
	return a, nil
}

func scanAccountRow(rows pgx.Rows) (domain.Account, error) {
	var a domain.Account
	var hashtags string
	if err := rows.Scan(&a.Ref, &a.InstagramBusinessID, &a.DisplayName, &a.AccessTokenRef, &a.Active,
		&a.EngagementAutoReplyOn, &a.AutoPublishOn, &a.AutoRepostOn, &hashtags, &a.CreatedAt); err != nil {
		return domain.Account{}, fmt.Errorf("op=account.scan: %w", err)
	}
	a.MonitoredHashtags = splitNonEmpty(hashtags)
	return a, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
