package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalTrigger_Next(t *testing.T) {
	trig := IntervalTrigger{Interval: 5 * time.Minute}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(5*time.Minute), trig.Next(from))
}

func TestNewCronTrigger_ValidExpression(t *testing.T) {
	trig, err := NewCronTrigger("0 9 * * *")
	require.NoError(t, err)

	from := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	next := trig.Next(from)
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, 5, next.Day())
}

func TestNewCronTrigger_InvalidExpressionIsError(t *testing.T) {
	_, err := NewCronTrigger("not a cron expression")
	assert.Error(t, err)
}
