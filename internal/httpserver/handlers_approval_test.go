package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRequest(t *testing.T, method, path string, payload map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(string(body)))
	return req
}

func TestCommentApproval_Approved(t *testing.T) {
	s := newTestServer(t, `{"approved":true,"reason":"on brand"}`, nil)

	req := jsonRequest(t, http.MethodPost, "/approve/comment-reply", map[string]any{
		"account_ref":    "acct1",
		"comment_id":     "c1",
		"comment_text":   "love it",
		"username":       "fan1",
		"proposed_reply": "thank you!",
	})
	w := httptest.NewRecorder()
	s.commentApproval(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["approved"])
}

func TestCommentApproval_MissingFieldsRejected(t *testing.T) {
	s := newTestServer(t, `{"approved":true}`, nil)

	req := jsonRequest(t, http.MethodPost, "/approve/comment-reply", map[string]any{"account_ref": "acct1"})
	w := httptest.NewRecorder()
	s.commentApproval(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostApproval_RejectsCaptionTooLong(t *testing.T) {
	s := newTestServer(t, "", errModelShouldNotBeCalled)

	longCaption := strings.Repeat("a", maxCaptionLength+1)
	req := jsonRequest(t, http.MethodPost, "/approve/post", map[string]any{
		"account_ref":       "acct1",
		"scheduled_post_id": "p1",
		"caption":           longCaption,
	})
	w := httptest.NewRecorder()
	s.postApproval(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["approved"])
	assert.Equal(t, "caption_too_long", body["reason"])
}

func TestPostApproval_RejectsTooManyHashtags(t *testing.T) {
	s := newTestServer(t, "", errModelShouldNotBeCalled)

	caption := strings.Repeat("#tag ", maxHashtagCount+1)
	req := jsonRequest(t, http.MethodPost, "/approve/post", map[string]any{
		"account_ref":       "acct1",
		"scheduled_post_id": "p1",
		"caption":           caption,
	})
	w := httptest.NewRecorder()
	s.postApproval(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "too_many_hashtags", body["reason"])
}

func TestPostApproval_WithinLimitsCallsModel(t *testing.T) {
	s := newTestServer(t, `{"approved":true,"reason":"great post"}`, nil)

	req := jsonRequest(t, http.MethodPost, "/approve/post", map[string]any{
		"account_ref":       "acct1",
		"scheduled_post_id": "p1",
		"caption":           "a short caption #ok",
	})
	w := httptest.NewRecorder()
	s.postApproval(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["approved"])
}
