package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
	"github.com/instabrain/core/internal/pipeline"
)

// newWebhookHandler binds one WebhookConfig into an http.HandlerFunc that
// handles both halves of the Meta subscription contract: the GET challenge
// handshake used when the webhook URL is registered, and the POST delivery
// of actual events (HMAC-verified, then run through the pipeline).
func newWebhookHandler[T any](cfg pipeline.WebhookConfig[T], gw *llmgateway.Gateway, audit domain.AuditRepository, secret, verifyToken string) http.HandlerFunc {
	runner := &pipeline.WebhookRunner[T]{Config: cfg, Gateway: gw, Audit: audit}

	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		if r.Method == http.MethodGet {
			handleVerifyHandshake(w, r, verifyToken)
			return
		}

		body, ok := verifyWebhookSignature(w, r, secret)
		if !ok {
			return
		}

		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			writeError(w, http.StatusBadRequest, requestID, "invalid_json", "request body is not valid JSON")
			return
		}

		outcome := runner.Run(r.Context(), requestID, raw)
		writeOutcome(w, outcome.Status, outcome.Body)
	}
}

// handleVerifyHandshake answers Meta's webhook subscription challenge: echo
// hub.challenge back as plain text when hub.mode=subscribe and hub.verify_token
// matches the configured token.
func handleVerifyHandshake(w http.ResponseWriter, r *http.Request, verifyToken string) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != verifyToken || verifyToken == "" {
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}
