// Package stub provides a fast, deterministic domain.AIClient for local
// development and tests that don't want to hit a real model endpoint.
package stub

import (
	"encoding/json"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// Client returns a fixed, valid analysis payload for every call and never
// requests a tool call.
type Client struct{}

func New() *Client { return &Client{} }

// ChatJSON simulates a tiny bit of latency and returns a canned analysis.
func (c *Client) ChatJSON(_ domain.Context, _, _ string, _ []domain.ToolSpec, _ int) (string, []domain.ToolCall, error) {
	time.Sleep(10 * time.Millisecond)
	payload := map[string]any{
		"action":     "reply",
		"confidence": 0.9,
		"reasoning":  "stub response for local development",
	}
	b, _ := json.Marshal(payload)
	return string(b), nil, nil
}

var _ domain.AIClient = (*Client)(nil)
