package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instabrain/core/internal/store/repo/postgres"
)

func TestCleanupService_CleanupOldData_OK(t *testing.T) {
	pool := &poolStub{}
	svc := postgres.NewCleanupService(pool, 30)
	require.NoError(t, svc.CleanupOldData(context.Background()))
}

func TestCleanupService_BeginError(t *testing.T) {
	pool := &poolStub{beginErr: errors.New("conn refused")}
	svc := postgres.NewCleanupService(pool, 30)
	assert.Error(t, svc.CleanupOldData(context.Background()))
}

func TestCleanupService_ExecError(t *testing.T) {
	pool := &poolStub{tx: &txStub{execErr: errors.New("delete failed")}}
	svc := postgres.NewCleanupService(pool, 30)
	assert.Error(t, svc.CleanupOldData(context.Background()))
}

func TestCleanupService_CommitError(t *testing.T) {
	pool := &poolStub{tx: &txStub{commitErr: errors.New("commit failed")}}
	svc := postgres.NewCleanupService(pool, 30)
	assert.Error(t, svc.CleanupOldData(context.Background()))
}

func TestNewCleanupService_DefaultsRetentionDays(t *testing.T) {
	svc := postgres.NewCleanupService(&poolStub{}, 0)
	assert.Equal(t, 90, svc.RetentionDays)
	svc = postgres.NewCleanupService(&poolStub{}, -5)
	assert.Equal(t, 90, svc.RetentionDays)
}

func TestCleanupService_RunPeriodic_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc := postgres.NewCleanupService(&poolStub{}, 30)
	svc.RunPeriodic(ctx, 10*time.Millisecond)
}
