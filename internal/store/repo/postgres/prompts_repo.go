package postgres

import (
	"fmt"

	"github.com/instabrain/core/internal/domain"
)

// PromptRepo loads prompt templates. Loaded once at startup into an
// in-process map (internal/prompts); no invalidation path, matching the
// original's load-once behavior.
type PromptRepo struct{ Pool PgxPool }

// NewPromptRepo constructs a PromptRepo.
func NewPromptRepo(p PgxPool) *PromptRepo { return &PromptRepo{Pool: p} }

// ActiveTemplates returns every prompt template marked active.
func (r *PromptRepo) ActiveTemplates(ctx domain.Context) ([]domain.PromptTemplate, error) {
	rows, err := r.Pool.Query(ctx, `SELECT prompt_key, version, body, is_active FROM prompt_templates WHERE is_active=true`)
	if err != nil {
		return nil, fmt.Errorf("op=prompt.active_templates: %w", err)
	}
	defer rows.Close()
	var out []domain.PromptTemplate
	for rows.Next() {
		var t domain.PromptTemplate
		if err := rows.Scan(&t.Key, &t.Version, &t.Body, &t.IsActive); err != nil {
			return nil, fmt.Errorf("op=prompt.active_templates: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
