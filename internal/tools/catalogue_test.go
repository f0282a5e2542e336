package tools

import (
	"time"

	"github.com/instabrain/core/internal/domain"
)

type fakeAccounts struct {
	accounts map[string]domain.Account
}

func (f *fakeAccounts) Get(_ domain.Context, ref string) (domain.Account, error) {
	a, ok := f.accounts[ref]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) ActiveAccounts(domain.Context) ([]domain.Account, error) { return nil, nil }

var _ domain.AccountRepository = (*fakeAccounts)(nil)

type fakePosts struct {
	posts map[string]domain.ScheduledPost
}

func (f *fakePosts) Create(domain.Context, domain.ScheduledPost) (string, error) { return "", nil }
func (f *fakePosts) UpdateStatus(domain.Context, string, string) error           { return nil }

func (f *fakePosts) Get(_ domain.Context, id string) (domain.ScheduledPost, error) {
	p, ok := f.posts[id]
	if !ok {
		return domain.ScheduledPost{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePosts) DuePosts(domain.Context, time.Time) ([]domain.ScheduledPost, error) {
	return nil, nil
}

var _ domain.ScheduledPostRepository = (*fakePosts)(nil)

type fakeAttribution struct {
	weights domain.AttributionModelWeights
	err     error
}

func (f *fakeAttribution) CreateRecord(domain.Context, domain.AttributionRecord) (string, error) {
	return "", nil
}

func (f *fakeAttribution) LatestWeights(domain.Context) (domain.AttributionModelWeights, error) {
	return f.weights, f.err
}

func (f *fakeAttribution) SaveWeights(domain.Context, domain.AttributionModelWeights) error {
	return nil
}

var _ domain.AttributionRepository = (*fakeAttribution)(nil)

type fakeAudit struct {
	recent   []domain.AuditEntry
	byRun    []domain.AuditEntry
	byComp   []domain.AuditEntry
	lastArgs map[string]any
}

func (f *fakeAudit) Append(domain.Context, domain.AuditEntry) (string, error) { return "", nil }

func (f *fakeAudit) RecentByAccount(_ domain.Context, accountRef string, limit int) ([]domain.AuditEntry, error) {
	f.lastArgs = map[string]any{"account_ref": accountRef, "limit": limit}
	return f.recent, nil
}

func (f *fakeAudit) ByRunID(_ domain.Context, runID string) ([]domain.AuditEntry, error) {
	f.lastArgs = map[string]any{"run_id": runID}
	return f.byRun, nil
}

func (f *fakeAudit) Query(_ domain.Context, component string, since time.Time, limit int) ([]domain.AuditEntry, error) {
	f.lastArgs = map[string]any{"component": component, "since": since, "limit": limit}
	return f.byComp, nil
}

var _ domain.AuditRepository = (*fakeAudit)(nil)

type fakeQueue struct {
	stats      domain.QueueStats
	enqueued   []domain.Job
	enqueueErr error
}

func (f *fakeQueue) Enqueue(_ domain.Context, j domain.Job) (string, error) {
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	f.enqueued = append(f.enqueued, j)
	return "job-1", nil
}

func (f *fakeQueue) Dequeue(domain.Context, domain.JobPriority) (*domain.Job, error) { return nil, nil }
func (f *fakeQueue) ScheduleRetry(domain.Context, domain.Job, time.Duration) error   { return nil }
func (f *fakeQueue) DrainScheduled(domain.Context) (int, error)                     { return 0, nil }
func (f *fakeQueue) DrainStoreFallback(domain.Context, int) (int, error)            { return 0, nil }
func (f *fakeQueue) MoveToDLQ(domain.Context, domain.Job, string) error              { return nil }

func (f *fakeQueue) AcquireExecutionLock(domain.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeQueue) ReleaseExecutionLock(domain.Context, string) error { return nil }

func (f *fakeQueue) Stats(domain.Context) (domain.QueueStats, error) { return f.stats, nil }

func (f *fakeQueue) ListDLQ(domain.Context, int) ([]domain.Job, error) { return nil, nil }
func (f *fakeQueue) RequeueFromDLQ(domain.Context, string) error       { return nil }

var _ domain.Queue = (*fakeQueue)(nil)
