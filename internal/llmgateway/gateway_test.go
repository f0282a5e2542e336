package llmgateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
)

type fakeAI struct {
	calls     int
	responses []string
	toolCalls [][]domain.ToolCall
	err       error
}

func (f *fakeAI) ChatJSON(_ domain.Context, _, _ string, _ []domain.ToolSpec, _ int) (string, []domain.ToolCall, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	i := f.calls
	f.calls++
	var tc []domain.ToolCall
	if i < len(f.toolCalls) {
		tc = f.toolCalls[i]
	}
	return f.responses[i], tc, nil
}

var _ domain.AIClient = (*fakeAI)(nil)

func testConfig() *config.Config {
	return &config.Config{LLMModel: "test-model", LLMMaxConcurrent: 2, LLMToolTimeout: time.Second, LLMMaxTokens: 256}
}

func TestGateway_Analyze_NoToolCalls(t *testing.T) {
	ai := &fakeAI{responses: []string{`{"action":"reply"}`}}
	g := New(ai, nil, testConfig())

	resp, err := g.Analyze(t.Context(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "reply", resp.JSON["action"])
	assert.Empty(t, resp.ToolsUsed)
	assert.Equal(t, 1, ai.calls)
}

func TestGateway_Analyze_BindsAndReinvokesOnToolCall(t *testing.T) {
	ai := &fakeAI{
		responses: []string{"", `{"action":"final"}`},
		toolCalls: [][]domain.ToolCall{
			{{ID: "c1", Name: "lookup", Arguments: map[string]any{"id": "abc"}}},
		},
	}
	called := false
	cat := Catalogue{"lookup": {
		Spec: domain.ToolSpec{Name: "lookup"},
		Handler: func(_ domain.Context, args map[string]any) (any, error) {
			called = true
			assert.Equal(t, "abc", args["id"])
			return map[string]any{"found": true}, nil
		},
	}}
	g := New(ai, cat, testConfig())

	resp, err := g.Analyze(t.Context(), "sys", "user")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "final", resp.JSON["action"])
	assert.Equal(t, []string{"lookup"}, resp.ToolsUsed)
	assert.Equal(t, 2, ai.calls)
}

func TestGateway_Analyze_UnknownToolYieldsStructuredError(t *testing.T) {
	ai := &fakeAI{
		responses: []string{"", `{"action":"final"}`},
		toolCalls: [][]domain.ToolCall{
			{{ID: "c1", Name: "does_not_exist"}},
		},
	}
	g := New(ai, Catalogue{}, testConfig())

	resp, err := g.Analyze(t.Context(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "final", resp.JSON["action"])
}

func TestGateway_Analyze_UnparseableResponseReturnsSentinel(t *testing.T) {
	ai := &fakeAI{responses: []string{"I cannot help with that."}}
	g := New(ai, nil, testConfig())

	resp, err := g.Analyze(t.Context(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "json_parse_failed", resp.JSON["error"])
	assert.Equal(t, "I cannot help with that.", resp.JSON["raw_response"])
}

func TestGateway_Analyze_PropagatesChatError(t *testing.T) {
	ai := &fakeAI{err: errors.New("upstream exploded")}
	g := New(ai, nil, testConfig())

	_, err := g.Analyze(t.Context(), "sys", "user")
	require.Error(t, err)
}

func TestGateway_Analyze_ToolHandlerErrorDoesNotAbortBatch(t *testing.T) {
	ai := &fakeAI{
		responses: []string{"", `{"action":"final"}`},
		toolCalls: [][]domain.ToolCall{
			{
				{ID: "c1", Name: "ok"},
				{ID: "c2", Name: "boom"},
			},
		},
	}
	cat := Catalogue{
		"ok":   {Spec: domain.ToolSpec{Name: "ok"}, Handler: func(domain.Context, map[string]any) (any, error) { return "fine", nil }},
		"boom": {Spec: domain.ToolSpec{Name: "boom"}, Handler: func(domain.Context, map[string]any) (any, error) { return nil, errors.New("tool broke") }},
	}
	g := New(ai, cat, testConfig())

	resp, err := g.Analyze(t.Context(), "sys", "user")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ok", "boom"}, resp.ToolsUsed)
}
