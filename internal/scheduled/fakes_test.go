package scheduled

import (
	"sync"
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
		LLMMaxConcurrent: 4,
		LLMToolTimeout:   time.Second,
		LLMMaxTokens:     256,
	})
}

type fakeAccounts struct{ accounts []domain.Account }

func (f *fakeAccounts) Get(_ domain.Context, ref string) (domain.Account, error) {
	for _, a := range f.accounts {
		if a.Ref == ref {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}
func (f *fakeAccounts) ActiveAccounts(domain.Context) ([]domain.Account, error) { return f.accounts, nil }

var _ domain.AccountRepository = (*fakeAccounts)(nil)

type fakeComments struct {
	mu         sync.Mutex
	unprocessed []domain.InboundComment
	processed   map[string]bool
}

func (f *fakeComments) Create(_ domain.Context, c domain.InboundComment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unprocessed = append(f.unprocessed, c)
	return c.ID, nil
}
func (f *fakeComments) UnprocessedSince(_ domain.Context, accountRef string, _ time.Time, limit int) ([]domain.InboundComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.InboundComment
	for _, c := range f.unprocessed {
		if c.AccountRef == accountRef && !f.processed[c.ID] {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeComments) MarkProcessed(_ domain.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processed == nil {
		f.processed = map[string]bool{}
	}
	f.processed[id] = true
	return nil
}

var _ domain.CommentRepository = (*fakeComments)(nil)

type fakeUGC struct {
	mu      sync.Mutex
	records []domain.UGCRecord
}

func (f *fakeUGC) Create(_ domain.Context, u domain.UGCRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = "ugc-" + u.SourceMediaID
	}
	f.records = append(f.records, u)
	return u.ID, nil
}
func (f *fakeUGC) ExistsBySourceMediaID(_ domain.Context, accountRef, sourceMediaID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.AccountRef == accountRef && r.SourceMediaID == sourceMediaID {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeUGC) UpdateStatus(_ domain.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == id {
			f.records[i].Status = status
		}
	}
	return nil
}
func (f *fakeUGC) ApprovedByAccount(_ domain.Context, accountRef string, limit int) ([]domain.UGCRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UGCRecord
	for _, r := range f.records {
		if r.AccountRef == accountRef && r.Status == "approved" {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ domain.UGCRepository = (*fakeUGC)(nil)

type fakeAttribution struct {
	mu      sync.Mutex
	records []domain.AttributionRecord
	weights *domain.AttributionModelWeights
}

func (f *fakeAttribution) CreateRecord(_ domain.Context, r domain.AttributionRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
	return "attr-1", nil
}
func (f *fakeAttribution) LatestWeights(domain.Context) (domain.AttributionModelWeights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.weights == nil {
		return domain.AttributionModelWeights{}, domain.ErrNotFound
	}
	return *f.weights, nil
}
func (f *fakeAttribution) SaveWeights(_ domain.Context, w domain.AttributionModelWeights) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weights = &w
	return nil
}
func (f *fakeAttribution) RecentByAccount(_ domain.Context, accountRef string, since time.Time) ([]domain.AttributionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AttributionRecord
	for _, r := range f.records {
		if r.AccountRef == accountRef && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ domain.AttributionRepository = (*fakeAttribution)(nil)

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Append(_ domain.Context, e domain.AuditEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return "audit-1", nil
}
func (f *fakeAudit) RecentByAccount(domain.Context, string, int) ([]domain.AuditEntry, error) { return nil, nil }
func (f *fakeAudit) ByRunID(domain.Context, string) ([]domain.AuditEntry, error)               { return nil, nil }
func (f *fakeAudit) Query(_ domain.Context, component string, _ time.Time, limit int) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].Component == component {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

var _ domain.AuditRepository = (*fakeAudit)(nil)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.Job
}

func (f *fakeQueue) Enqueue(_ domain.Context, j domain.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, j)
	return "job-1", nil
}
func (f *fakeQueue) Dequeue(domain.Context, domain.JobPriority) (*domain.Job, error) { return nil, nil }
func (f *fakeQueue) ScheduleRetry(domain.Context, domain.Job, time.Duration) error   { return nil }
func (f *fakeQueue) DrainScheduled(domain.Context) (int, error)                     { return 0, nil }
func (f *fakeQueue) DrainStoreFallback(domain.Context, int) (int, error)            { return 0, nil }
func (f *fakeQueue) MoveToDLQ(domain.Context, domain.Job, string) error             { return nil }
func (f *fakeQueue) AcquireExecutionLock(domain.Context, string, time.Duration) (bool, error) {
	return true, nil
}
func (f *fakeQueue) ReleaseExecutionLock(domain.Context, string) error { return nil }
func (f *fakeQueue) Stats(domain.Context) (domain.QueueStats, error)   { return domain.QueueStats{}, nil }
func (f *fakeQueue) ListDLQ(domain.Context, int) ([]domain.Job, error) { return nil, nil }
func (f *fakeQueue) RequeueFromDLQ(domain.Context, string) error       { return nil }

var _ domain.Queue = (*fakeQueue)(nil)

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeCache) Get(_ domain.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}
func (f *fakeCache) Set(_ domain.Context, key, value string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string]string{}
	}
	f.data[key] = value
}
func (f *fakeCache) Invalidate(_ domain.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
}

var _ domain.Cache = (*fakeCache)(nil)

type fakeBackendReader struct {
	resp map[string]any
	err  error
}

func (f *fakeBackendReader) Get(domain.Context, string, string, map[string]string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

var _ domain.BackendReader = (*fakeBackendReader)(nil)

type fakeScheduledPosts struct {
	mu    sync.Mutex
	posts []domain.ScheduledPost
}

func (f *fakeScheduledPosts) Create(_ domain.Context, p domain.ScheduledPost) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = "post-1"
	f.posts = append(f.posts, p)
	return p.ID, nil
}
func (f *fakeScheduledPosts) UpdateStatus(_ domain.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == id {
			f.posts[i].Status = status
		}
	}
	return nil
}
func (f *fakeScheduledPosts) Get(_ domain.Context, id string) (domain.ScheduledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.ScheduledPost{}, domain.ErrNotFound
}
func (f *fakeScheduledPosts) DuePosts(domain.Context, time.Time) ([]domain.ScheduledPost, error) { return nil, nil }

var _ domain.ScheduledPostRepository = (*fakeScheduledPosts)(nil)
