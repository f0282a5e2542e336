package httpserver

import (
	"fmt"
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

func testGateway(t *testing.T, response string, err error) *llmgateway.Gateway {
	t.Helper()
	return llmgateway.New(&fakeAI{response: response, err: err}, nil, &config.Config{
		LLMModel:         "test-model",
		LLMMaxConcurrent: 2,
		LLMToolTimeout:   time.Second,
		LLMMaxTokens:     256,
	})
}

type fakeAudit struct {
	entries []domain.AuditEntry
}

func (f *fakeAudit) Append(_ domain.Context, e domain.AuditEntry) (string, error) {
	f.entries = append(f.entries, e)
	return fmt.Sprintf("audit-%d", len(f.entries)), nil
}
func (f *fakeAudit) RecentByAccount(_ domain.Context, accountRef string, limit int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range f.entries {
		if e.AccountRef == accountRef {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
func (f *fakeAudit) ByRunID(_ domain.Context, runID string) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range f.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeAudit) Query(domain.Context, string, time.Time, int) ([]domain.AuditEntry, error) {
	return nil, nil
}

var _ domain.AuditRepository = (*fakeAudit)(nil)

type fakeAccounts struct {
	byRef map[string]domain.Account
}

func (f *fakeAccounts) Get(_ domain.Context, ref string) (domain.Account, error) {
	a, ok := f.byRef[ref]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %q not found", ref)
	}
	return a, nil
}
func (f *fakeAccounts) ActiveAccounts(domain.Context) ([]domain.Account, error) { return nil, nil }

var _ domain.AccountRepository = (*fakeAccounts)(nil)

type fakeQueue struct {
	jobs        []domain.Job
	retried     []domain.Job
	dlq         []domain.Job
	requeued    []string
	retryDelays []time.Duration
}

func (f *fakeQueue) Enqueue(_ domain.Context, j domain.Job) (string, error) {
	j.ID = fmt.Sprintf("job-%d", len(f.jobs)+1)
	f.jobs = append(f.jobs, j)
	return j.ID, nil
}
func (f *fakeQueue) Dequeue(domain.Context, domain.JobPriority) (*domain.Job, error) { return nil, nil }
func (f *fakeQueue) ScheduleRetry(_ domain.Context, j domain.Job, delay time.Duration) error {
	f.retried = append(f.retried, j)
	f.retryDelays = append(f.retryDelays, delay)
	return nil
}
func (f *fakeQueue) DrainScheduled(domain.Context) (int, error)              { return 0, nil }
func (f *fakeQueue) DrainStoreFallback(domain.Context, int) (int, error)     { return 0, nil }
func (f *fakeQueue) MoveToDLQ(_ domain.Context, j domain.Job, reason string) error {
	j.LastError = reason
	f.dlq = append(f.dlq, j)
	return nil
}
func (f *fakeQueue) AcquireExecutionLock(domain.Context, string, time.Duration) (bool, error) {
	return true, nil
}
func (f *fakeQueue) ReleaseExecutionLock(domain.Context, string) error { return nil }
func (f *fakeQueue) Stats(domain.Context) (domain.QueueStats, error) {
	return domain.QueueStats{DLQDepth: int64(len(f.dlq))}, nil
}
func (f *fakeQueue) ListDLQ(_ domain.Context, limit int) ([]domain.Job, error) {
	if len(f.dlq) > limit {
		return f.dlq[:limit], nil
	}
	return f.dlq, nil
}
func (f *fakeQueue) RequeueFromDLQ(_ domain.Context, jobID string) error {
	f.requeued = append(f.requeued, jobID)
	for i, j := range f.dlq {
		if j.ID == jobID {
			f.dlq = append(f.dlq[:i], f.dlq[i+1:]...)
			break
		}
	}
	return nil
}

var _ domain.Queue = (*fakeQueue)(nil)

type fakeAttribution struct {
	weights domain.AttributionModelWeights
	records []domain.AttributionRecord
}

func (f *fakeAttribution) CreateRecord(_ domain.Context, r domain.AttributionRecord) (string, error) {
	r.ID = fmt.Sprintf("attr-%d", len(f.records)+1)
	f.records = append(f.records, r)
	return r.ID, nil
}
func (f *fakeAttribution) LatestWeights(domain.Context) (domain.AttributionModelWeights, error) {
	return f.weights, nil
}
func (f *fakeAttribution) SaveWeights(_ domain.Context, w domain.AttributionModelWeights) error {
	f.weights = w
	return nil
}

var _ domain.AttributionRepository = (*fakeAttribution)(nil)

type fakeCache struct {
	data map[string]string
}

func (f *fakeCache) Get(_ domain.Context, key string) (string, bool) {
	v, ok := f.data[key]
	return v, ok
}
func (f *fakeCache) Set(_ domain.Context, key, value string, _ time.Duration) {
	if f.data == nil {
		f.data = map[string]string{}
	}
	f.data[key] = value
}
func (f *fakeCache) Invalidate(_ domain.Context, key string) { delete(f.data, key) }

var _ domain.Cache = (*fakeCache)(nil)

func equalWeights() domain.AttributionModelWeights {
	return domain.AttributionModelWeights{
		Version: 1,
		Weights: map[string]float64{"last_touch": 0.25, "first_touch": 0.25, "linear": 0.25, "time_decay": 0.25},
	}
}
