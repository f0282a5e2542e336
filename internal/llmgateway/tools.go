package llmgateway

import "github.com/instabrain/core/internal/domain"

// ToolHandler executes one tool call and returns a JSON-marshalable result.
type ToolHandler func(ctx domain.Context, args map[string]any) (any, error)

// Tool pairs the spec the model sees with the handler that actually runs it.
type Tool struct {
	Spec    domain.ToolSpec
	Handler ToolHandler
}

// Catalogue is the fixed set of tools the gateway advertises on every call.
type Catalogue map[string]Tool

func (c Catalogue) specs() []domain.ToolSpec {
	out := make([]domain.ToolSpec, 0, len(c))
	for _, t := range c {
		out = append(out, t.Spec)
	}
	return out
}
