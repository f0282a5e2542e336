package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// CleanupService enforces the configured data retention window against
// completed/DLQ jobs, the audit log, and settled scheduled posts and UGC
// records. Retention never touches queued/processing jobs regardless of age.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
}

// NewCleanupService constructs a CleanupService. retentionDays <= 0 falls
// back to 90, matching the default the scheduler config documents.
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays}
}

// CleanupOldData deletes settled records older than the retention window in
// a single transaction so a mid-run failure can't leave jobs deleted without
// their audit trail, or vice versa.
func (s *CleanupService) CleanupOldData(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.RetentionDays)

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=cleanup.run: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	deletedJobs, err := execCount(ctx, tx, `DELETE FROM jobs WHERE status IN ('completed','dlq') AND created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.run: jobs: %w", err)
	}
	deletedAudit, err := execCount(ctx, tx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.run: audit_log: %w", err)
	}
	deletedPosts, err := execCount(ctx, tx, `DELETE FROM scheduled_posts WHERE status IN ('published','failed') AND updated_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.run: scheduled_posts: %w", err)
	}
	deletedUGC, err := execCount(ctx, tx, `DELETE FROM ugc_records WHERE status IN ('reposted','rejected') AND discovered_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.run: ugc_records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=cleanup.run: commit: %w", err)
	}
	committed = true

	slog.Info("data retention cleanup completed",
		slog.Int64("deleted_jobs", deletedJobs),
		slog.Int64("deleted_audit_entries", deletedAudit),
		slog.Int64("deleted_scheduled_posts", deletedPosts),
		slog.Int64("deleted_ugc_records", deletedUGC),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

func execCount(ctx context.Context, tx pgx.Tx, sql string, args ...any) (int64, error) {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RunPeriodic runs CleanupOldData on an interval (daily by default) until
// ctx is canceled.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
