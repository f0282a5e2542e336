// Package llmgateway is the single entry point every pipeline and tool uses
// to call the configured LLM: bounded concurrency, tool binding with
// bind-and-reinvoke, per-model circuit breaking, and best-effort JSON
// response parsing.
package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	aiadapter "github.com/instabrain/core/internal/adapter/ai"
	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
)

// Response is what every Analyze call returns: the parsed JSON body (or the
// json_parse_failed sentinel), which tools actually fired, and timing.
type Response struct {
	JSON      map[string]any
	ToolsUsed []string
	LatencyMs int64
}

// Gateway wraps a domain.AIClient with the cross-cutting concerns spec'd for
// LLM inference: a semaphore caps concurrent calls, a per-model circuit
// breaker skips calls to a model that's currently failing, and the tool
// catalogue is bound on every request.
type Gateway struct {
	ai         domain.AIClient
	catalogue  Catalogue
	model      string
	sem        *semaphore.Weighted
	breakers   *aiadapter.CircuitBreakerManager
	toolTimeout time.Duration
	maxTokens  int
}

// New constructs a Gateway. catalogue may be nil/empty for callers that
// never need tool binding (e.g. the normalization pass).
func New(ai domain.AIClient, catalogue Catalogue, cfg *config.Config) *Gateway {
	return &Gateway{
		ai:          ai,
		catalogue:   catalogue,
		model:       cfg.LLMModel,
		sem:         semaphore.NewWeighted(int64(cfg.LLMMaxConcurrent)),
		breakers:    aiadapter.NewCircuitBreakerManager(),
		toolTimeout: cfg.LLMToolTimeout,
		maxTokens:   cfg.LLMMaxTokens,
	}
}

// Analyze runs one bind-and-reinvoke inference: the model is called once
// with the tool catalogue bound; if it requests tool calls, each is
// dispatched concurrently with its own timeout, the results are appended to
// the prompt, and the model is called a second time for a final answer.
func (g *Gateway) Analyze(ctx domain.Context, systemPrompt, userPrompt string) (Response, error) {
	start := time.Now()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Response{}, fmt.Errorf("op=llmgateway.analyze acquire semaphore: %w", err)
	}
	defer g.sem.Release(1)

	breaker := g.breakers.GetBreaker(g.model)
	if !breaker.ShouldAttempt() {
		return Response{}, fmt.Errorf("op=llmgateway.analyze: circuit open for model %s", g.model)
	}

	content, calls, err := g.ai.ChatJSON(ctx, systemPrompt, userPrompt, g.catalogue.specs(), g.maxTokens)
	if err != nil {
		breaker.RecordFailure()
		return Response{}, fmt.Errorf("op=llmgateway.analyze first call: %w", err)
	}
	breaker.RecordSuccess()

	toolsUsed := make([]string, 0, len(calls))
	if len(calls) > 0 {
		results := g.dispatchToolCalls(ctx, calls)
		for _, c := range calls {
			toolsUsed = append(toolsUsed, c.Name)
		}

		enriched := buildEnrichedPrompt(userPrompt, results)
		content, _, err = g.ai.ChatJSON(ctx, systemPrompt, enriched, nil, g.maxTokens)
		if err != nil {
			breaker.RecordFailure()
			return Response{}, fmt.Errorf("op=llmgateway.analyze reinvoke: %w", err)
		}
		breaker.RecordSuccess()
	}

	return Response{
		JSON:      parseModelJSON(content),
		ToolsUsed: toolsUsed,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

type toolResult struct {
	ID     string `json:"tool_call_id"`
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// dispatchToolCalls runs every requested tool concurrently, each bounded by
// toolTimeout. A call to an unknown tool, or one that errors or times out,
// yields a structured error entry rather than aborting the batch — the
// model sees it on the follow-up call.
func (g *Gateway) dispatchToolCalls(ctx domain.Context, calls []domain.ToolCall) []toolResult {
	results := make([]toolResult, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))

	for i, call := range calls {
		go func(i int, call domain.ToolCall) {
			defer wg.Done()
			results[i] = g.runOne(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (g *Gateway) runOne(ctx domain.Context, call domain.ToolCall) toolResult {
	tool, ok := g.catalogue[call.Name]
	if !ok {
		slog.Warn("llmgateway tool call to unknown tool", slog.String("tool", call.Name))
		return toolResult{ID: call.ID, Name: call.Name, Error: fmt.Sprintf("unknown tool: %s", call.Name)}
	}

	toolCtx, cancel := context.WithTimeout(ctx, g.toolTimeout)
	defer cancel()

	out, err := tool.Handler(toolCtx, call.Arguments)
	if err != nil {
		slog.Warn("llmgateway tool call failed", slog.String("tool", call.Name), slog.Any("error", err))
		return toolResult{ID: call.ID, Name: call.Name, Error: err.Error()}
	}
	return toolResult{ID: call.ID, Name: call.Name, Output: out}
}

// buildEnrichedPrompt appends the tool outputs to the original prompt and
// asks the model for its final JSON analysis, mirroring the Python
// AgentService's _build_enriched_prompt.
func buildEnrichedPrompt(userPrompt string, results []toolResult) string {
	b, err := json.Marshal(results)
	if err != nil {
		b = []byte("[]")
	}
	return userPrompt + "\n\n--- TOOL RESULTS ---\n" + string(b) + "\n\nUsing the tool results above, provide your final analysis as JSON only."
}
