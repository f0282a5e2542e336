package scheduled

import (
	"context"
	"log/slog"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// heartbeatAgentID identifies this process to the backend's liveness check.
const heartbeatAgentID = "instabrain-core"

// RunHeartbeat reports this process as alive to the backend. Unlike the
// other five pipelines it never fans out over accounts — it's one
// process-level signal, not per-account work — and on failure it only logs
// and audits rather than retrying inline; the next tick tries again.
func RunHeartbeat(ctx context.Context, d Deps) error {
	_, err := d.Backend.Get(ctx, heartbeatAgentID, "/api/instagram/agent/heartbeat", map[string]string{
		"agent_id":  heartbeatAgentID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("heartbeat send failed", slog.Any("error", err))
		if _, auditErr := d.Audit.Append(ctx, domain.AuditEntry{
			AccountRef: heartbeatAgentID, Component: "scheduler:heartbeat", Action: "heartbeat_failed",
			Details: map[string]any{"error": err.Error()}, CreatedAt: time.Now().UTC(),
		}); auditErr != nil {
			slog.Error("heartbeat: audit append failed", slog.Any("error", auditErr))
		}
		return nil
	}
	return nil
}
