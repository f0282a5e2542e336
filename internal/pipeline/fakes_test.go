package pipeline

import (
	"testing"
	"time"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

type fakeAI struct {
	response string
	err      error
}

func (f *fakeAI) ChatJSON(_ domain.Context, _, _ string, _ []domain.ToolSpec, _ int) (string, []domain.ToolCall, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.response, nil, nil
}

var _ domain.AIClient = (*fakeAI)(nil)

type fakeAudit struct {
	entries []domain.AuditEntry
}

func (f *fakeAudit) Append(_ domain.Context, e domain.AuditEntry) (string, error) {
	f.entries = append(f.entries, e)
	return "audit-1", nil
}
func (f *fakeAudit) RecentByAccount(domain.Context, string, int) ([]domain.AuditEntry, error) {
	return nil, nil
}
func (f *fakeAudit) ByRunID(domain.Context, string) ([]domain.AuditEntry, error) { return nil, nil }
func (f *fakeAudit) Query(domain.Context, string, time.Time, int) ([]domain.AuditEntry, error) {
	return nil, nil
}

var _ domain.AuditRepository = (*fakeAudit)(nil)

func testGateway(t *testing.T, response string, err error) *llmgateway.Gateway {
	t.Helper()
	return llmgateway.New(&fakeAI{response: response, err: err}, nil, &config.Config{
		LLMModel:         "test-model",
		LLMMaxConcurrent: 2,
		LLMToolTimeout:   time.Second,
		LLMMaxTokens:     256,
	})
}
