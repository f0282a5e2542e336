package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// HardRuleOutcome short-circuits a pipeline before it ever reaches the LLM:
// when a hook returns a non-nil outcome, the pipeline logs Action to the
// audit trail and returns Response verbatim (plus request_id).
type HardRuleOutcome struct {
	Action       string
	Response     map[string]any
	AuditDetails map[string]any
}

// ApprovalConfig configures one synchronous approval route (comment, DM, or
// post). T is the parsed resource type the route's hooks operate on — each
// concrete route in internal/httpserver instantiates its own
// ApprovalConfig[commentApprovalRequest], ApprovalConfig[dmApprovalRequest]
// or ApprovalConfig[postApprovalRequest].
type ApprovalConfig[T any] struct {
	TaskType        string // "comment", "dm", "post" — used in the audit component tag
	EventType       string
	AnalysisFactors []string
	ContextUsed     []string
	PromptVersion   string
	SystemPrompt    string

	GetResourceID     func(T) string
	GetUserID         func(T) string
	FetchContext      func(ctx domain.Context, parsed T) (map[string]any, error)
	BuildPrompt       func(parsed T, context map[string]any) string
	BuildResponse     func(parsed T, analysis map[string]any, latencyMs int64, toolsUsed []string) map[string]any
	BuildAuditDetails func(parsed T, analysis map[string]any, latencyMs int64) map[string]any

	HardRules func(parsed T) *HardRuleOutcome
}

// ApprovalRunner drives one ApprovalConfig against the LLM gateway and audit
// log. A single runner is constructed per route and reused across requests.
type ApprovalRunner[T any] struct {
	Config  ApprovalConfig[T]
	Gateway *llmgateway.Gateway
	Audit   domain.AuditRepository
}

// Outcome is what a pipeline run produces: an HTTP status and a JSON body.
type Outcome struct {
	Status int
	Body   map[string]any
}

// Run executes the approval pipeline: hard rules, context fetch, prompt
// build, LLM call, response shaping with the standard audit_data envelope,
// then an audit write.
func (r *ApprovalRunner[T]) Run(ctx domain.Context, requestID string, parsed T) Outcome {
	start := time.Now()

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
		slog.Error("approval pipeline context fetch failed", slog.String("task_type", r.Config.TaskType), slog.Any("error", err))
		return Outcome{Status: http.StatusInternalServerError, Body: map[string]any{
			"error": "context_fetch_failed", "request_id": requestID,
		}}
	}

	prompt := r.Config.BuildPrompt(parsed, contextData)

	analysis, err := r.Gateway.Analyze(ctx, r.Config.SystemPrompt, prompt)
	if err != nil {
		slog.Error("approval pipeline analysis failed", slog.String("task_type", r.Config.TaskType), slog.Any("error", err))
		return Outcome{Status: http.StatusServiceUnavailable, Body: map[string]any{
			"approved": "pending_manual_review",
			"error":    "model_unavailable",
			"message":  "AI model could not process request. Please retry.",
			"request_id": requestID,
		}}
	}

	response := r.Config.BuildResponse(parsed, analysis.JSON, analysis.LatencyMs, analysis.ToolsUsed)
	response["audit_data"] = map[string]any{
		"request_id":        requestID,
		"analyzed_at":       time.Now().UTC().Format(time.RFC3339),
		"latency_ms":        analysis.LatencyMs,
		"tools_called":      analysis.ToolsUsed,
		"analysis_factors":  r.Config.AnalysisFactors,
		"context_used":      r.Config.ContextUsed,
		"prompt_version":    r.Config.PromptVersion,
	}

	action, _ := response["_action_override"].(string)
	delete(response, "_action_override")
	if action == "" {
		if approved, _ := response["approved"].(bool); approved {
			action = "approved"
		} else {
			action = "rejected"
		}
	}

	details := r.Config.BuildAuditDetails(parsed, analysis.JSON, analysis.LatencyMs)
	details["request_id"] = requestID
	r.audit(ctx, requestID, parsed, action, details)

	slog.Info("approval pipeline completed",
		slog.String("task_type", r.Config.TaskType), slog.String("action", action),
		slog.Int64("latency_ms", analysis.LatencyMs), slog.Duration("total", time.Since(start)))

	return Outcome{Status: http.StatusOK, Body: response}
}

func (r *ApprovalRunner[T]) audit(ctx domain.Context, requestID string, parsed T, action string, details map[string]any) {
	if r.Audit == nil {
		return
	}
	details["resource_id"] = r.Config.GetResourceID(parsed)
	if _, err := r.Audit.Append(ctx, domain.AuditEntry{
		RunID:      requestID,
		AccountRef: r.Config.GetUserID(parsed),
		Component:  fmt.Sprintf("approval:%s", r.Config.TaskType),
		Action:     action,
		Details:    details,
		CreatedAt:  time.Now(),
	}); err != nil {
		slog.Warn("approval pipeline audit append failed", slog.String("request_id", requestID), slog.Any("error", err))
	}
}
