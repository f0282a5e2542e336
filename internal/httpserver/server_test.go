package httpserver

import (
	"errors"
	"testing"
	"time"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
)

const (
	testWebhookSecret = "whsecret"
	testVerifyToken   = "tok123"
)

var errModelShouldNotBeCalled = errors.New("model should not have been called")

// newTestServer builds a fully-wired Server backed entirely by fakes, with
// the LLM gateway stubbed to return aiResponse (a JSON string) from every
// Analyze call.
func newTestServer(t *testing.T, aiResponse string, aiErr error) *Server {
	t.Helper()

	cfg := config.Config{
		WebhookSecret:                        testWebhookSecret,
		WebhookVerifyToken:                    testVerifyToken,
		APIKey:                                "apikey",
		OversightTimeout:                      5 * time.Second,
		OversightAuditLimit:                   20,
		OversightCacheTTL:                     time.Minute,
		SalesAttributionMaxTouchpoints:        20,
		SalesAttributionFraudScoreThreshold:   80,
	}

	return NewServer(Deps{
		Cfg:     cfg,
		Gateway: testGateway(t, aiResponse, aiErr),
		Queue:   &fakeQueue{},
		Audit:   &fakeAudit{},
		Accounts: &fakeAccounts{byRef: map[string]domain.Account{
			"acct1": {Ref: "acct1", DisplayName: "Test Account", Active: true},
		}},
		Attribution:    &fakeAttribution{weights: equalWeights()},
		OversightCache: &fakeCache{},
	})
}
