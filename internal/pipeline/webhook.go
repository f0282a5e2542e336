package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// WebhookConfig configures one webhook route (comment or DM; orders run a
// specialized deterministic pipeline and don't use this type). T is the
// parsed event type the route's hooks operate on.
type WebhookConfig[T any] struct {
	MessageType string // "comment" or "dm" — used in the audit component tag

	ParsePayload       func(raw map[string]any) (T, error)
	GetResourceID      func(T) string
	GetUserID          func(T) string
	FetchContext       func(ctx domain.Context, parsed T) (map[string]any, error)
	BuildAnalysisInput func(parsed T, context map[string]any) (systemPrompt, userPrompt string)
	BuildResponse      func(parsed T, analysis map[string]any) map[string]any
	ExecuteReply       func(ctx domain.Context, parsed T, analysis map[string]any) (map[string]any, error)
	BuildAuditDetails  func(parsed T, analysis map[string]any, execResult map[string]any, latencyMs int64) map[string]any

	HardRules func(parsed T) *HardRuleOutcome
	// PreExecuteCheck lets a route short-circuit execution (e.g. the DM 24h
	// window check). ok=true means its returned map IS the exec result and
	// ExecuteReply is not called; ok=false falls through to ExecuteReply.
	PreExecuteCheck func(ctx domain.Context, parsed T, analysis map[string]any) (result map[string]any, ok bool, err error)
}

// WebhookRunner drives one WebhookConfig against the LLM gateway, the
// outbound queue (via ExecuteReply), and the audit log.
type WebhookRunner[T any] struct {
	Config  WebhookConfig[T]
	Gateway *llmgateway.Gateway
	Audit   domain.AuditRepository
}

// Run executes the webhook pipeline: parse, hard rules, context fetch,
// analyze, pre-execute check, execute, audit.
func (r *WebhookRunner[T]) Run(ctx domain.Context, requestID string, rawPayload map[string]any) Outcome {
	start := time.Now()

	parsed, err := r.Config.ParsePayload(rawPayload)
	if err != nil {
		return Outcome{Status: http.StatusBadRequest, Body: map[string]any{
			"error": "parse_error", "message": err.Error(), "request_id": requestID,
		}}
	}

	if r.Config.HardRules != nil {
		if outcome := r.Config.HardRules(parsed); outcome != nil {
			details := outcome.AuditDetails
			if details == nil {
				details = map[string]any{}
			}
			details["request_id"] = requestID
			r.audit(ctx, requestID, parsed, outcome.Action, details)

			resp := outcome.Response
			if resp == nil {
				resp = map[string]any{}
			}
			resp["request_id"] = requestID
			return Outcome{Status: http.StatusOK, Body: resp}
		}
	}

	contextData, err := r.Config.FetchContext(ctx, parsed)
	if err != nil {
		slog.Error("webhook pipeline context fetch failed", slog.String("message_type", r.Config.MessageType), slog.Any("error", err))
		return Outcome{Status: http.StatusInternalServerError, Body: map[string]any{
			"error": "context_fetch_failed", "request_id": requestID,
		}}
	}

	systemPrompt, userPrompt := r.Config.BuildAnalysisInput(parsed, contextData)
	analysis, err := r.Gateway.Analyze(ctx, systemPrompt, userPrompt)
	if err != nil {
		slog.Error("webhook pipeline analysis failed", slog.String("message_type", r.Config.MessageType), slog.Any("error", err))
		return Outcome{Status: http.StatusServiceUnavailable, Body: map[string]any{
			"processed": false, "error": "analysis_failed", "message": "could not analyze message", "request_id": requestID,
		}}
	}

	needsHuman, _ := analysis.JSON["needs_human"].(bool)
	execResult := r.resolveExecution(ctx, parsed, analysis.JSON, needsHuman)

	response := r.Config.BuildResponse(parsed, analysis.JSON)
	response["execution"] = execResult
	response["request_id"] = requestID
	response["audit_data"] = map[string]any{
		"request_id":  requestID,
		"analyzed_at": time.Now().UTC().Format(time.RFC3339),
		"latency_ms":  analysis.LatencyMs,
		"tools_used":  analysis.ToolsUsed,
	}

	action := "processed_no_reply"
	switch {
	case truthy(execResult["executed"]):
		action = "auto_replied"
	case needsHuman:
		action = "escalated"
	}

	details := r.Config.BuildAuditDetails(parsed, analysis.JSON, execResult, analysis.LatencyMs)
	details["request_id"] = requestID
	r.audit(ctx, requestID, parsed, action, details)

	slog.Info("webhook pipeline completed",
		slog.String("message_type", r.Config.MessageType), slog.String("action", action),
		slog.Duration("total", time.Since(start)))

	return Outcome{Status: http.StatusOK, Body: response}
}

func (r *WebhookRunner[T]) resolveExecution(ctx domain.Context, parsed T, analysisJSON map[string]any, needsHuman bool) map[string]any {
	if needsHuman {
		return map[string]any{
			"executed":          false,
			"reason":            "escalated_to_human",
			"escalation_reason": analysisJSON["escalation_reason"],
		}
	}

	if r.Config.PreExecuteCheck != nil {
		result, ok, err := r.Config.PreExecuteCheck(ctx, parsed, analysisJSON)
		if err != nil {
			slog.Warn("webhook pipeline pre-execute check failed", slog.Any("error", err))
		}
		if ok {
			return result
		}
	}

	execResult, err := r.Config.ExecuteReply(ctx, parsed, analysisJSON)
	if err != nil {
		slog.Error("webhook pipeline execute reply failed", slog.Any("error", err))
		return map[string]any{"executed": false, "reason": "execute_failed", "error": err.Error()}
	}
	return execResult
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}

func (r *WebhookRunner[T]) audit(ctx domain.Context, requestID string, parsed T, action string, details map[string]any) {
	if r.Audit == nil {
		return
	}
	details["resource_id"] = r.Config.GetResourceID(parsed)
	if _, err := r.Audit.Append(ctx, domain.AuditEntry{
		RunID:      requestID,
		AccountRef: r.Config.GetUserID(parsed),
		Component:  fmt.Sprintf("webhook:%s", r.Config.MessageType),
		Action:     action,
		Details:    details,
		NeedsHuman: action == "escalated",
		CreatedAt:  time.Now(),
	}); err != nil {
		slog.Warn("webhook pipeline audit append failed", slog.String("request_id", requestID), slog.Any("error", err))
	}
}
