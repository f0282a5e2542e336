package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instabrain/core/internal/store/repo/postgres"
)

func TestPromptRepo_ActiveTemplates_ScansRows(t *testing.T) {
	pool := &poolStub{rows: &rowsStub{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "comment_reply"
			*dest[1].(*int) = 3
			*dest[2].(*string) = "You are a helpful assistant..."
			*dest[3].(*bool) = true
			return nil
		},
	}}}
	repo := postgres.NewPromptRepo(pool)
	templates, err := repo.ActiveTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "comment_reply", templates[0].Key)
	assert.Equal(t, 3, templates[0].Version)
}

func TestPromptRepo_ActiveTemplates_PropagatesQueryError(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewPromptRepo(pool)
	_, err := repo.ActiveTemplates(context.Background())
	assert.Error(t, err)
}
