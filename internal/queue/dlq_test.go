package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instabrain/core/internal/domain"
)

func TestRedisQueue_ListDLQ_ReturnsDeadLetteredJobs(t *testing.T) {
	q, led, _, cleanup := newTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	led.jobs["dead-1"] = domain.Job{ID: "dead-1", Priority: domain.PriorityHigh, Type: domain.JobTypePublishPost}
	require.NoError(t, q.MoveToDLQ(ctx, led.jobs["dead-1"], "permanent failure"))

	jobs, err := q.ListDLQ(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "dead-1", jobs[0].ID)
	assert.Equal(t, domain.JobDLQ, jobs[0].Status)
}

func TestRedisQueue_ListDLQ_EmptyWhenNothingDeadLettered(t *testing.T) {
	q, _, _, cleanup := newTestQueue(t)
	defer cleanup()

	jobs, err := q.ListDLQ(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestRedisQueue_RequeueFromDLQ_MovesJobBackOntoItsLane(t *testing.T) {
	q, led, _, cleanup := newTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	led.jobs["dead-2"] = domain.Job{ID: "dead-2", Priority: domain.PriorityNormal, Type: domain.JobTypeRepostUGC, RetryCount: 5}
	require.NoError(t, q.MoveToDLQ(ctx, led.jobs["dead-2"], "rate_limit"))

	require.NoError(t, q.RequeueFromDLQ(ctx, "dead-2"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.DLQDepth)
	assert.Equal(t, int64(1), stats.NormalDepth)

	j, err := q.Dequeue(ctx, domain.PriorityNormal)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "dead-2", j.ID)
	assert.Equal(t, 0, j.RetryCount)
	assert.Equal(t, domain.JobQueued, led.jobs["dead-2"].Status)
}

func TestRedisQueue_RequeueFromDLQ_UnknownJobIsNotFound(t *testing.T) {
	q, _, _, cleanup := newTestQueue(t)
	defer cleanup()

	err := q.RequeueFromDLQ(context.Background(), "missing-job")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
