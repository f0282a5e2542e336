package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOutcome_RequiresJobID(t *testing.T) {
	s := newTestServer(t, "", nil)

	req := jsonRequest(t, http.MethodPost, "/log-outcome", map[string]any{"success": true})
	w := httptest.NewRecorder()
	s.logOutcome(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogOutcome_SuccessJustAudits(t *testing.T) {
	s := newTestServer(t, "", nil)

	req := jsonRequest(t, http.MethodPost, "/log-outcome", map[string]any{
		"job_id":      "job-1",
		"account_ref": "acct1",
		"success":     true,
	})
	w := httptest.NewRecorder()
	s.logOutcome(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.Queue.(*fakeQueue).retried)
	assert.Empty(t, s.Queue.(*fakeQueue).dlq)
}

func TestLogOutcome_RetryableFailureSchedulesRetry(t *testing.T) {
	s := newTestServer(t, "", nil)

	req := jsonRequest(t, http.MethodPost, "/log-outcome", map[string]any{
		"job_id":         "job-1",
		"account_ref":    "acct1",
		"success":        false,
		"retryable":      true,
		"error_category": "transient",
		"error":          "upstream 500",
		"retry_count":    0,
	})
	w := httptest.NewRecorder()
	s.logOutcome(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	q := s.Queue.(*fakeQueue)
	require.Len(t, q.retried, 1)
	assert.Equal(t, "job-1", q.retried[0].ID)
	assert.Equal(t, 1, q.retried[0].RetryCount)
}

func TestLogOutcome_NonRetryableFailureMovesToDLQ(t *testing.T) {
	s := newTestServer(t, "", nil)

	req := jsonRequest(t, http.MethodPost, "/log-outcome", map[string]any{
		"job_id":         "job-1",
		"account_ref":    "acct1",
		"success":        false,
		"retryable":      false,
		"error_category": "permanent",
		"error":          "invalid payload",
	})
	w := httptest.NewRecorder()
	s.logOutcome(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["moved_to_dlq"])
	assert.Len(t, s.Queue.(*fakeQueue).dlq, 1)
}
