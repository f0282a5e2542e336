package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/observability"
)

func TestJobStore_CircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	repo := &fakeJobRepo{createErr: errors.New("conn reset")}
	oc := observability.NewObservableClient(observability.ConnectionTypeDatabase, observability.OperationTypeQuery, "test", time.Second, time.Millisecond, time.Second)
	oc.CircuitBreaker = observability.NewCircuitBreaker(2, time.Minute, 0.5)
	s := &JobStore{repo: repo, resilience: &resilience{oc: oc, retryAttempts: 0, retryDelay: time.Millisecond}}

	for i := 0; i < 2; i++ {
		_, _ = s.Create(context.Background(), domain.Job{})
	}
	assert.False(t, s.resilience.oc.IsHealthy())

	callsBefore := repo.calls
	_, err := s.Create(context.Background(), domain.Job{})
	assert.Error(t, err)
	assert.Equal(t, callsBefore, repo.calls, "circuit breaker should short-circuit without calling the repo")
}
