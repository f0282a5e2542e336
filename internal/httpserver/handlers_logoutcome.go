package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// logOutcomeRequest is the execution-feedback shape the backend proxy posts
// back for actions it executes asynchronously (outside the synchronous
// BackendProxy.Execute path worker/execute.go already retries inline).
type logOutcomeRequest struct {
	JobID            string         `json:"job_id"`
	AccountRef       string         `json:"account_ref"`
	Type             string         `json:"type"`
	Payload          map[string]any `json:"payload"`
	Endpoint         string         `json:"endpoint"`
	Source           string         `json:"source"`
	RetryCount       int            `json:"retry_count"`
	Success          bool           `json:"success"`
	Retryable        bool           `json:"retryable"`
	ErrorCategory    string         `json:"error_category"`
	Error            string         `json:"error"`
	RetryAfterSecond int            `json:"retry_after_seconds"`
}

// handleLogOutcome serves POST /log-outcome: it audits the reported result
// and, on a retryable failure, re-arms the job through the same
// ScheduleRetry/MoveToDLQ routing worker/execute.go uses for synchronous
// failures, so async and sync executions converge on one retry policy.
func (s *Server) handleLogOutcome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		var req logOutcomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
			writeError(w, http.StatusBadRequest, requestID, "invalid_request", "job_id is required")
			return
		}

		ctx := r.Context()
		action := "execution_succeeded"
		if !req.Success {
			action = "execution_failed"
		}
		s.audit(ctx, requestID, req.AccountRef, "log-outcome", action, map[string]any{
			"job_id": req.JobID, "error": req.Error, "error_category": req.ErrorCategory,
		}, !req.Success && !req.Retryable)

		if req.Success {
			writeJSON(w, http.StatusOK, map[string]any{"recorded": true, "request_id": requestID})
			return
		}

		job := domain.Job{
			ID:         req.JobID,
			Type:       domain.JobType(req.Type),
			AccountRef: req.AccountRef,
			Payload:    req.Payload,
			Endpoint:   req.Endpoint,
			Source:     req.Source,
			RetryCount: req.RetryCount + 1,
		}
		category := domain.ErrorCategory(req.ErrorCategory)

		if !req.Retryable || domain.ShouldMoveToDLQ(job.RetryCount, category) {
			if err := s.Queue.MoveToDLQ(ctx, job, req.Error); err != nil {
				writeError(w, http.StatusInternalServerError, requestID, "dlq_failed", err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"recorded": true, "moved_to_dlq": true, "request_id": requestID})
			return
		}

		var hint *time.Duration
		if req.RetryAfterSecond > 0 {
			d := time.Duration(req.RetryAfterSecond) * time.Second
			hint = &d
		}
		delay := domain.NextRetryDelay(job.RetryCount, category, hint)
		if err := s.Queue.ScheduleRetry(ctx, job, delay); err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "retry_schedule_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recorded": true, "retry_in_seconds": int(delay.Seconds()), "request_id": requestID})
	}
}
