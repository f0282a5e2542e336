package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
	"github.com/instabrain/core/internal/pipeline"
)

// newApprovalHandler binds one ApprovalConfig plus a raw-payload parser into
// an http.HandlerFunc. Unlike webhooks, approval requests have no signature
// to verify — they're called by an authenticated internal caller proposing
// an action and asking the LLM gateway to approve or reject it.
func newApprovalHandler[T any](cfg pipeline.ApprovalConfig[T], gw *llmgateway.Gateway, audit domain.AuditRepository, parse func(map[string]any) (T, error)) http.HandlerFunc {
	runner := &pipeline.ApprovalRunner[T]{Config: cfg, Gateway: gw, Audit: audit}

	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeError(w, http.StatusBadRequest, requestID, "invalid_json", "request body is not valid JSON")
			return
		}

		parsed, err := parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, requestID, "invalid_request", err.Error())
			return
		}

		outcome := runner.Run(r.Context(), requestID, parsed)
		writeOutcome(w, outcome.Status, outcome.Body)
	}
}
