package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON marshals v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("httpserver write response failed", slog.Any("error", err))
	}
}

// writeError writes the uniform {error, message, request_id} envelope every
// route in §6 returns on non-2xx, so clients never need per-route parsing.
func writeError(w http.ResponseWriter, status int, requestID, errTag, message string) {
	writeJSON(w, status, map[string]any{
		"error":      errTag,
		"message":    message,
		"request_id": requestID,
	})
}

// writeOutcome renders a pipeline.Outcome, which already carries its own
// status and body (including request_id, since the pipelines stamp it
// themselves on every branch).
func writeOutcome(w http.ResponseWriter, status int, body map[string]any) {
	writeJSON(w, status, body)
}
