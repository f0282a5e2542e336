package tools

import (
	"fmt"
	"time"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// explainabilityTools let the oversight brain answer "why did the system do
// X" questions by reading the audit log — the same append-only trail every
// pipeline writes to. Strictly read-only, grounded on
// original_source/agent/services/oversight_brain.py's context-gathering step.
func explainabilityTools(d Deps) llmgateway.Catalogue {
	if d.Audit == nil {
		return nil
	}

	return llmgateway.Catalogue{
		"get_recent_decisions": {
			Spec: domain.ToolSpec{
				Name:        "get_recent_decisions",
				Description: "List the most recent audited decisions for an account, newest first.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_ref": map[string]any{"type": "string"},
						"limit":       map[string]any{"type": "integer"},
					},
					"required": []string{"account_ref"},
				},
			},
			Handler: func(ctx domain.Context, args map[string]any) (any, error) {
				ref, _ := args["account_ref"].(string)
				if ref == "" {
					return nil, fmt.Errorf("account_ref is required")
				}
				limit := intArg(args["limit"], 20)
				return d.Audit.RecentByAccount(ctx, ref, limit)
			},
		},
		"get_run_history": {
			Spec: domain.ToolSpec{
				Name:        "get_run_history",
				Description: "Fetch every audit entry written during one pipeline run, identified by run_id.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"run_id": map[string]any{"type": "string"}},
					"required":   []string{"run_id"},
				},
			},
			Handler: func(ctx domain.Context, args map[string]any) (any, error) {
				runID, _ := args["run_id"].(string)
				if runID == "" {
					return nil, fmt.Errorf("run_id is required")
				}
				return d.Audit.ByRunID(ctx, runID)
			},
		},
		"get_component_activity": {
			Spec: domain.ToolSpec{
				Name:        "get_component_activity",
				Description: "List recent audit entries for one component (e.g. worker:reply_to_comment, scheduler:content) since N hours ago.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"component":  map[string]any{"type": "string"},
						"since_hours": map[string]any{"type": "integer"},
						"limit":      map[string]any{"type": "integer"},
					},
					"required": []string{"component"},
				},
			},
			Handler: func(ctx domain.Context, args map[string]any) (any, error) {
				component, _ := args["component"].(string)
				if component == "" {
					return nil, fmt.Errorf("component is required")
				}
				sinceHours := intArg(args["since_hours"], 24)
				limit := intArg(args["limit"], 50)
				since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
				return d.Audit.Query(ctx, component, since, limit)
			},
		},
	}
}

// intArg reads an integer-valued tool argument. Arguments arrive as
// map[string]any unmarshaled from JSON, so a number decodes as float64.
func intArg(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
