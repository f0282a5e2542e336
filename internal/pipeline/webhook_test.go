package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instabrain/core/internal/domain"
)

type webhookFixture struct {
	ResourceID string
	AccountRef string
}

func baseWebhookConfig() WebhookConfig[webhookFixture] {
	return WebhookConfig[webhookFixture]{
		MessageType: "comment",
		ParsePayload: func(raw map[string]any) (webhookFixture, error) {
			id, ok := raw["id"].(string)
			if !ok || id == "" {
				return webhookFixture{}, errors.New("missing id")
			}
			return webhookFixture{ResourceID: id, AccountRef: "acct-1"}, nil
		},
		GetResourceID: func(f webhookFixture) string { return f.ResourceID },
		GetUserID:     func(f webhookFixture) string { return f.AccountRef },
		FetchContext: func(domain.Context, webhookFixture) (map[string]any, error) {
			return map[string]any{"post_caption": "hello"}, nil
		},
		BuildAnalysisInput: func(f webhookFixture, ctx map[string]any) (string, string) {
			return "system", "analyze " + f.ResourceID
		},
		BuildResponse: func(f webhookFixture, analysis map[string]any) map[string]any {
			return map[string]any{"processed": true}
		},
		ExecuteReply: func(domain.Context, webhookFixture, map[string]any) (map[string]any, error) {
			return map[string]any{"executed": true, "job_id": "job-1"}, nil
		},
		BuildAuditDetails: func(f webhookFixture, analysis, execResult map[string]any, latencyMs int64) map[string]any {
			return map[string]any{"latency_ms": latencyMs}
		},
	}
}

func TestWebhookRunner_ParseErrorReturns400(t *testing.T) {
	runner := &WebhookRunner[webhookFixture]{
		Config:  baseWebhookConfig(),
		Gateway: testGateway(t, `{}`, nil),
		Audit:   &fakeAudit{},
	}

	outcome := runner.Run(context.Background(), "req-1", map[string]any{})
	assert.Equal(t, 400, outcome.Status)
	assert.Equal(t, "parse_error", outcome.Body["error"])
}

func TestWebhookRunner_HardRuleShortCircuits(t *testing.T) {
	cfg := baseWebhookConfig()
	cfg.HardRules = func(f webhookFixture) *HardRuleOutcome {
		return &HardRuleOutcome{
			Action:       "ignored_self_comment",
			Response:     map[string]any{"processed": false},
			AuditDetails: map[string]any{"rule": "self_comment"},
		}
	}
	audit := &fakeAudit{}
	runner := &WebhookRunner[webhookFixture]{
		Config:  cfg,
		Gateway: testGateway(t, `{}`, nil),
		Audit:   audit,
	}

	outcome := runner.Run(context.Background(), "req-2", map[string]any{"id": "c1"})
	require.Equal(t, 200, outcome.Status)
	assert.Equal(t, false, outcome.Body["processed"])
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "ignored_self_comment", audit.entries[0].Action)
}

func TestWebhookRunner_ContextFetchErrorReturns500(t *testing.T) {
	cfg := baseWebhookConfig()
	cfg.FetchContext = func(domain.Context, webhookFixture) (map[string]any, error) {
		return nil, errors.New("store down")
	}
	runner := &WebhookRunner[webhookFixture]{
		Config:  cfg,
		Gateway: testGateway(t, `{}`, nil),
		Audit:   &fakeAudit{},
	}

	outcome := runner.Run(context.Background(), "req-3", map[string]any{"id": "c1"})
	assert.Equal(t, 500, outcome.Status)
}

func TestWebhookRunner_AnalysisErrorReturns503(t *testing.T) {
	runner := &WebhookRunner[webhookFixture]{
		Config:  baseWebhookConfig(),
		Gateway: testGateway(t, "", errors.New("upstream down")),
		Audit:   &fakeAudit{},
	}

	outcome := runner.Run(context.Background(), "req-4", map[string]any{"id": "c1"})
	assert.Equal(t, 503, outcome.Status)
	assert.Equal(t, false, outcome.Body["processed"])
}

func TestWebhookRunner_HappyPath_AutoReplies(t *testing.T) {
	audit := &fakeAudit{}
	runner := &WebhookRunner[webhookFixture]{
		Config:  baseWebhookConfig(),
		Gateway: testGateway(t, `{"needs_human":false}`, nil),
		Audit:   audit,
	}

	outcome := runner.Run(context.Background(), "req-5", map[string]any{"id": "c1"})
	require.Equal(t, 200, outcome.Status)
	execution := outcome.Body["execution"].(map[string]any)
	assert.Equal(t, true, execution["executed"])

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "auto_replied", audit.entries[0].Action)
	assert.False(t, audit.entries[0].NeedsHuman)
	assert.Equal(t, "webhook:comment", audit.entries[0].Component)
}

func TestWebhookRunner_NeedsHumanEscalates(t *testing.T) {
	audit := &fakeAudit{}
	executeCalled := false
	cfg := baseWebhookConfig()
	cfg.ExecuteReply = func(domain.Context, webhookFixture, map[string]any) (map[string]any, error) {
		executeCalled = true
		return map[string]any{"executed": true}, nil
	}
	runner := &WebhookRunner[webhookFixture]{
		Config:  cfg,
		Gateway: testGateway(t, `{"needs_human":true,"escalation_reason":"angry customer"}`, nil),
		Audit:   audit,
	}

	outcome := runner.Run(context.Background(), "req-6", map[string]any{"id": "c1"})
	require.Equal(t, 200, outcome.Status)
	execution := outcome.Body["execution"].(map[string]any)
	assert.Equal(t, false, execution["executed"])
	assert.Equal(t, "escalated_to_human", execution["reason"])
	assert.Equal(t, "angry customer", execution["escalation_reason"])
	assert.False(t, executeCalled)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "escalated", audit.entries[0].Action)
	assert.True(t, audit.entries[0].NeedsHuman)
}

func TestWebhookRunner_PreExecuteCheckShortCircuitsExecuteReply(t *testing.T) {
	executeCalled := false
	cfg := baseWebhookConfig()
	cfg.ExecuteReply = func(domain.Context, webhookFixture, map[string]any) (map[string]any, error) {
		executeCalled = true
		return map[string]any{"executed": true}, nil
	}
	cfg.PreExecuteCheck = func(domain.Context, webhookFixture, map[string]any) (map[string]any, bool, error) {
		return map[string]any{"executed": false, "reason": "outside_24h_window"}, true, nil
	}
	runner := &WebhookRunner[webhookFixture]{
		Config:  cfg,
		Gateway: testGateway(t, `{"needs_human":false}`, nil),
		Audit:   &fakeAudit{},
	}

	outcome := runner.Run(context.Background(), "req-7", map[string]any{"id": "c1"})
	execution := outcome.Body["execution"].(map[string]any)
	assert.Equal(t, "outside_24h_window", execution["reason"])
	assert.False(t, executeCalled)
}

func TestWebhookRunner_PreExecuteCheckFallsThroughToExecuteReply(t *testing.T) {
	executeCalled := false
	cfg := baseWebhookConfig()
	cfg.ExecuteReply = func(domain.Context, webhookFixture, map[string]any) (map[string]any, error) {
		executeCalled = true
		return map[string]any{"executed": true, "job_id": "job-2"}, nil
	}
	cfg.PreExecuteCheck = func(domain.Context, webhookFixture, map[string]any) (map[string]any, bool, error) {
		return nil, false, nil
	}
	runner := &WebhookRunner[webhookFixture]{
		Config:  cfg,
		Gateway: testGateway(t, `{"needs_human":false}`, nil),
		Audit:   &fakeAudit{},
	}

	outcome := runner.Run(context.Background(), "req-8", map[string]any{"id": "c1"})
	execution := outcome.Body["execution"].(map[string]any)
	assert.Equal(t, "job-2", execution["job_id"])
	assert.True(t, executeCalled)
}

func TestWebhookRunner_ExecuteReplyErrorIsReflectedInExecution(t *testing.T) {
	cfg := baseWebhookConfig()
	cfg.ExecuteReply = func(domain.Context, webhookFixture, map[string]any) (map[string]any, error) {
		return nil, errors.New("queue down")
	}
	audit := &fakeAudit{}
	runner := &WebhookRunner[webhookFixture]{
		Config:  cfg,
		Gateway: testGateway(t, `{"needs_human":false}`, nil),
		Audit:   audit,
	}

	outcome := runner.Run(context.Background(), "req-9", map[string]any{"id": "c1"})
	require.Equal(t, 200, outcome.Status)
	execution := outcome.Body["execution"].(map[string]any)
	assert.Equal(t, false, execution["executed"])
	assert.Equal(t, "execute_failed", execution["reason"])

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "processed_no_reply", audit.entries[0].Action)
}
