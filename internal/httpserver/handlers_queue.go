package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleQueueStatus serves GET /queue/status with the point-in-time depth
// of every queue tier, per §4.4's "queue depth, DLQ size" requirement.
func (s *Server) handleQueueStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)
		stats, err := s.Queue.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "stats_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// handleQueueDLQ serves GET /queue/dlq?limit=N, defaulting to 100 dead
// letters per page.
func (s *Server) handleQueueDLQ() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		jobs, err := s.Queue.ListDLQ(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "dlq_list_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "request_id": requestID})
	}
}

// handleQueueRetryDLQ serves POST /queue/retry-dlq. A body of {"job_id":"..."}
// retries a single dead-lettered job; an absent job_id retries the jobs
// currently in the DLQ, up to 1000 per call.
func (s *Server) handleQueueRetryDLQ() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)
		jobID := chi.URLParam(r, "job_id")
		if jobID == "" {
			jobID = r.URL.Query().Get("job_id")
		}
		if jobID == "" {
			var body struct {
				JobID string `json:"job_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				jobID = body.JobID
			}
		}

		ctx := r.Context()
		if jobID != "" {
			if err := s.Queue.RequeueFromDLQ(ctx, jobID); err != nil {
				writeError(w, http.StatusInternalServerError, requestID, "requeue_failed", err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"requeued": 1, "request_id": requestID})
			return
		}

		jobs, err := s.Queue.ListDLQ(ctx, 1000)
		if err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "dlq_list_failed", err.Error())
			return
		}
		requeued := 0
		for _, j := range jobs {
			if err := s.Queue.RequeueFromDLQ(ctx, j.ID); err == nil {
				requeued++
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"requeued": requeued, "total": len(jobs), "request_id": requestID})
	}
}
