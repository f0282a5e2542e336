package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/instabrain/core/internal/scheduler"
	"github.com/stretchr/testify/assert"
)

// neverTrigger fires far enough in the future that TriggerNow's own forced
// run is the only execution the test observes.
type neverTrigger struct{}

func (neverTrigger) Next(time.Time) time.Time { return time.Now().Add(24 * time.Hour) }

func schedulerWithOneJob(t *testing.T) (*Server, *scheduler.Registry) {
	t.Helper()
	reg := scheduler.New(time.Minute)
	reg.Register("engagement_monitor", neverTrigger{}, func(ctx context.Context) error { return nil })

	s := newTestServer(t, "", nil)
	s.Sched = reg
	return s, reg
}

func requestWithURLParams(method, path string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSchedulerControl_UnknownJobName(t *testing.T) {
	s, _ := schedulerWithOneJob(t)

	req := requestWithURLParams(http.MethodGet, "/nope/status", map[string]string{"job": "nope", "action": "status"})
	w := httptest.NewRecorder()
	s.handleSchedulerControl()(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedulerControl_Status(t *testing.T) {
	s, _ := schedulerWithOneJob(t)

	req := requestWithURLParams(http.MethodGet, "/engagement-monitor/status", map[string]string{"job": "engagement-monitor", "action": "status"})
	w := httptest.NewRecorder()
	s.handleSchedulerControl()(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSchedulerControl_PauseAndResume(t *testing.T) {
	s, _ := schedulerWithOneJob(t)

	pauseReq := requestWithURLParams(http.MethodPost, "/engagement-monitor/pause", map[string]string{"job": "engagement-monitor", "action": "pause"})
	w := httptest.NewRecorder()
	s.handleSchedulerControl()(w, pauseReq)
	assert.Equal(t, http.StatusOK, w.Code)

	resumeReq := requestWithURLParams(http.MethodPost, "/engagement-monitor/resume", map[string]string{"job": "engagement-monitor", "action": "resume"})
	w2 := httptest.NewRecorder()
	s.handleSchedulerControl()(w2, resumeReq)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestSchedulerControl_UnknownAction(t *testing.T) {
	s, _ := schedulerWithOneJob(t)

	req := requestWithURLParams(http.MethodPost, "/engagement-monitor/explode", map[string]string{"job": "engagement-monitor", "action": "explode"})
	w := httptest.NewRecorder()
	s.handleSchedulerControl()(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
