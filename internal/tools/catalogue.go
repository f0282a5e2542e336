// Package tools builds the fixed tool catalogue the LLM gateway binds on
// every inference call: read tools that fetch context, explainability
// tools the oversight brain uses to answer "why" questions, and action
// shims that only ever enqueue — never call the platform backend directly.
package tools

import (
	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// Deps bundles every store port a tool handler might need. Any field may be
// nil if the caller's catalogue never references a tool that needs it.
type Deps struct {
	Accounts    domain.AccountRepository
	Audit       domain.AuditRepository
	Posts       domain.ScheduledPostRepository
	UGC         domain.UGCRepository
	Attribution domain.AttributionRepository
	Queue       domain.Queue
}

// New assembles the full catalogue from the available deps.
func New(d Deps) llmgateway.Catalogue {
	cat := llmgateway.Catalogue{}
	for name, t := range readTools(d) {
		cat[name] = t
	}
	for name, t := range explainabilityTools(d) {
		cat[name] = t
	}
	for name, t := range actionTools(d) {
		cat[name] = t
	}
	return cat
}
