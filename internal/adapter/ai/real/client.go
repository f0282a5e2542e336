// Package real implements domain.AIClient against an OpenAI-compatible
// chat completions endpoint (OpenRouter, or a self-hosted gateway exposing
// the same schema).
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
)

// Client calls a single configured model over HTTP. The LLM gateway layers
// per-model circuit breaking and bounded concurrency on top; this type only
// knows how to make one call and report its outcome.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

// New constructs a Client from the service config.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.LLMBaseURL,
		apiKey:  cfg.LLMAPIKey,
		model:   cfg.LLMModel,
		hc: &http.Client{
			Timeout:   cfg.LLMCallTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type chatMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []openAIToolReq `json:"tool_calls,omitempty"`
}

type openAIToolReq struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type chatRequest struct {
	Model      string          `json:"model"`
	Messages   []chatMessage   `json:"messages"`
	Tools      []openAIToolReq `json:"tools,omitempty"`
	ToolChoice string          `json:"tool_choice,omitempty"`
	MaxTokens  int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatJSON sends one chat completion request with the given tools bound and
// returns the model's text content plus any tool calls it requested.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, tools []domain.ToolSpec, maxTokens int) (string, []domain.ToolCall, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Tools:     toOpenAITools(tools),
		MaxTokens: maxTokens,
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("op=llm.chat_json encode: %w", err)
	}

	var resp chatResponse
	op := func() error {
		return c.doOnce(ctx, body, &resp)
	}
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", nil, fmt.Errorf("op=llm.chat_json: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("op=llm.chat_json: empty choices")
	}
	msg := resp.Choices[0].Message
	var calls []domain.ToolCall
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		calls = append(calls, domain.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return msg.Content, calls, nil
}

func (c *Client) doOnce(ctx context.Context, body []byte, out *chatResponse) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(r)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("llm rate limited", slog.String("model", c.model))
		return fmt.Errorf("rate limited: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return backoff.Permanent(fmt.Errorf("chat status %d: %s", resp.StatusCode, b))
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("chat status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func toOpenAITools(tools []domain.ToolSpec) []openAIToolReq {
	out := make([]openAIToolReq, 0, len(tools))
	for _, t := range tools {
		var req openAIToolReq
		req.Type = "function"
		req.Function.Name = t.Name
		req.Function.Description = t.Description
		req.Function.Parameters = t.Parameters
		out = append(out, req)
	}
	return out
}

var _ domain.AIClient = (*Client)(nil)
