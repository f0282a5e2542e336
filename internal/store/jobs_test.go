package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/observability"
)

type fakeJobRepo struct {
	createErr error
	calls     int
	job       domain.Job
}

func (f *fakeJobRepo) Create(_ domain.Context, j domain.Job) (string, error) {
	f.calls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "job-1", nil
}
func (f *fakeJobRepo) UpdateStatus(domain.Context, string, domain.JobStatus, *string) error { return nil }
func (f *fakeJobRepo) IncrementRetry(domain.Context, string, string) error                  { return nil }
func (f *fakeJobRepo) Get(domain.Context, string) (domain.Job, error)                       { return f.job, nil }
func (f *fakeJobRepo) FindByIdempotencyKey(domain.Context, string) (domain.Job, error)      { return f.job, nil }
func (f *fakeJobRepo) Count(domain.Context) (int64, error)                                  { return 0, nil }
func (f *fakeJobRepo) CountByStatus(domain.Context, domain.JobStatus) (int64, error)         { return 0, nil }

func newTestStore(repo jobRepoPort) *JobStore {
	oc := observability.NewObservableClient(observability.ConnectionTypeDatabase, observability.OperationTypeQuery, "test", time.Second, time.Millisecond, time.Second)
	return &JobStore{repo: repo, resilience: &resilience{oc: oc, retryAttempts: 2, retryDelay: time.Millisecond}}
}

func TestJobStore_Create_SucceedsWithoutRetry(t *testing.T) {
	repo := &fakeJobRepo{}
	s := newTestStore(repo)
	id, err := s.Create(context.Background(), domain.Job{Type: domain.JobTypeReplyToComment})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	assert.Equal(t, 1, repo.calls)
}

func TestJobStore_Create_RetriesThenFails(t *testing.T) {
	repo := &fakeJobRepo{createErr: errors.New("conn reset")}
	s := newTestStore(repo)
	_, err := s.Create(context.Background(), domain.Job{Type: domain.JobTypeReplyToDM})
	assert.Error(t, err)
	assert.Equal(t, 3, repo.calls) // initial attempt + 2 retries
}
