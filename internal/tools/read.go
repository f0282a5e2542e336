package tools

import (
	"fmt"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// readTools exposes store lookups the model may use to enrich its analysis.
// None of these mutate state.
func readTools(d Deps) llmgateway.Catalogue {
	cat := llmgateway.Catalogue{}

	if d.Accounts != nil {
		cat["get_account_info"] = llmgateway.Tool{
			Spec: domain.ToolSpec{
				Name:        "get_account_info",
				Description: "Look up a tracked Instagram business account's profile and feature gates by account_ref.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"account_ref": map[string]any{"type": "string"}},
					"required":   []string{"account_ref"},
				},
			},
			Handler: func(ctx domain.Context, args map[string]any) (any, error) {
				ref, _ := args["account_ref"].(string)
				if ref == "" {
					return nil, fmt.Errorf("account_ref is required")
				}
				acc, err := d.Accounts.Get(ctx, ref)
				if err != nil {
					return nil, err
				}
				return acc, nil
			},
		}
	}

	if d.Posts != nil {
		cat["get_scheduled_post"] = llmgateway.Tool{
			Spec: domain.ToolSpec{
				Name:        "get_scheduled_post",
				Description: "Fetch a scheduled post's current status and metadata by id.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"post_id": map[string]any{"type": "string"}},
					"required":   []string{"post_id"},
				},
			},
			Handler: func(ctx domain.Context, args map[string]any) (any, error) {
				id, _ := args["post_id"].(string)
				if id == "" {
					return nil, fmt.Errorf("post_id is required")
				}
				p, err := d.Posts.Get(ctx, id)
				if err != nil {
					return nil, err
				}
				return p, nil
			},
		}
	}

	if d.Attribution != nil {
		cat["get_attribution_weights"] = llmgateway.Tool{
			Spec: domain.ToolSpec{
				Name:        "get_attribution_weights",
				Description: "Return the current multi-touch attribution model weights by channel.",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
			Handler: func(ctx domain.Context, _ map[string]any) (any, error) {
				w, err := d.Attribution.LatestWeights(ctx)
				if err != nil {
					return nil, err
				}
				return w, nil
			},
		}
	}

	if d.Queue != nil {
		cat["get_queue_stats"] = llmgateway.Tool{
			Spec: domain.ToolSpec{
				Name:        "get_queue_stats",
				Description: "Return current outbound queue depths (high, normal, scheduled, dead-letter).",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
			Handler: func(ctx domain.Context, _ map[string]any) (any, error) {
				s, err := d.Queue.Stats(ctx)
				if err != nil {
					return nil, err
				}
				return s, nil
			},
		}
	}

	return cat
}
