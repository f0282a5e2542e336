package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// schedulerJobs maps the five scheduler-control URL segments to the job ids
// registered in the scheduler.Registry by cmd/server/main.go.
var schedulerJobs = map[string]string{
	"engagement-monitor": "engagement_monitor",
	"content-scheduler":  "content_scheduler",
	"sales-attribution":  "weekly_attribution_learning",
	"ugc-collection":     "ugc_discovery",
	"analytics-reports":  "analytics_reports",
}

// handleSchedulerControl serves GET|POST /{job}/{action} for the five
// registered batch pipelines, where action is one of status, trigger,
// pause, resume.
func (s *Server) handleSchedulerControl() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)
		urlName := chi.URLParam(r, "job")
		action := chi.URLParam(r, "action")

		jobID, ok := schedulerJobs[urlName]
		if !ok {
			writeError(w, http.StatusNotFound, requestID, "unknown_job", "no such scheduled pipeline")
			return
		}

		switch action {
		case "status":
			for _, st := range s.Sched.Status() {
				if st.ID == jobID {
					writeJSON(w, http.StatusOK, st)
					return
				}
			}
			writeError(w, http.StatusNotFound, requestID, "unknown_job", "job not registered")
		case "trigger":
			if !s.Sched.TriggerNow(jobID) {
				writeJSON(w, http.StatusConflict, map[string]any{
					"triggered": false, "reason": "already_running_or_unregistered", "request_id": requestID,
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"triggered": true, "request_id": requestID})
		case "pause":
			ok := s.Sched.Pause(jobID)
			writeJSON(w, http.StatusOK, map[string]any{"paused": ok, "request_id": requestID})
		case "resume":
			ok := s.Sched.Resume(jobID)
			writeJSON(w, http.StatusOK, map[string]any{"resumed": ok, "request_id": requestID})
		default:
			writeError(w, http.StatusNotFound, requestID, "unknown_action", "action must be one of status, trigger, pause, resume")
		}
	}
}
