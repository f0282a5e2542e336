// Package backend implements domain.BackendProxy: the HTTP client the queue
// worker pool uses to execute outbound actions (comment/DM replies, post
// publication, UGC reposts, analytics pushes) against the platform backend
// that actually talks to the Instagram Graph API and the storefront.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/instabrain/core/internal/domain"
)

// errorBody is the structured failure payload the backend returns on a
// non-2xx response. Every field is optional; missing ones fall back to the
// safe defaults matched by the worker pool's retry logic.
type errorBody struct {
	Error             string `json:"error"`
	Retryable         *bool  `json:"retryable"`
	ErrorCategory     string `json:"error_category"`
	RetryAfterSeconds *int   `json:"retry_after_seconds"`
}

// Client posts jobs to the backend's per-action endpoints.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New constructs a Client. timeout bounds both the http.Client and (via the
// caller's context) each individual call — belt and suspenders against a
// backend that ignores its own deadline.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Execute posts the job's payload to its endpoint and classifies any
// failure into a *domain.JobError so the worker pool can decide whether to
// retry, delay, or move straight to the dead-letter queue.
func (c *Client) Execute(ctx domain.Context, j domain.Job) error {
	body, err := json.Marshal(j.Payload)
	if err != nil {
		return &domain.JobError{Category: domain.CategoryPermanent, Retryable: false, Message: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+j.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &domain.JobError{Category: domain.CategoryPermanent, Retryable: false, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Account-Ref", j.AccountRef)

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return &domain.JobError{Category: domain.CategoryTransient, Retryable: true, Message: "backend_timeout", RetryAfter: durPtr(30 * time.Second)}
		}
		return &domain.JobError{Category: domain.CategoryUnknown, Retryable: true, Message: fmt.Sprintf("backend request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	category := domain.ErrorCategory(eb.ErrorCategory)
	if category == "" {
		category = domain.CategoryUnknown
	}
	retryable := true
	if eb.Retryable != nil {
		retryable = *eb.Retryable
	}
	msg := eb.Error
	if msg == "" {
		snippet := string(raw)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		msg = fmt.Sprintf("http_%d: %s", resp.StatusCode, snippet)
	}
	var retryAfter *time.Duration
	if eb.RetryAfterSeconds != nil {
		d := time.Duration(*eb.RetryAfterSeconds) * time.Second
		retryAfter = &d
	}
	return &domain.JobError{Category: category, Retryable: retryable, Message: msg, RetryAfter: retryAfter}
}

func durPtr(d time.Duration) *time.Duration { return &d }

var _ domain.BackendProxy = (*Client)(nil)

// Get issues a read-only GET against the backend on behalf of an account —
// the scheduled pipelines' route into live Instagram/storefront data
// (analytics snapshots, hashtag search, tagged media) rather than the
// fire-and-forget action path Execute covers.
func (c *Client) Get(ctx domain.Context, accountRef, path string, query map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend get: build request: %w", err)
	}
	req.Header.Set("X-Account-Ref", accountRef)
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend get %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("backend get %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("backend get %s: http_%d: %s", path, resp.StatusCode, snippet)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("backend get %s: decode response: %w", path, err)
	}
	return out, nil
}

var _ domain.BackendReader = (*Client)(nil)
