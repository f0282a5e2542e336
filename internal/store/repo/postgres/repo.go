// Package postgres provides PostgreSQL-backed implementations of the store
// client's repository ports.
//
// The JobRepo create/update/lookup methods, every PendingOutboundJobRepo
// method, AuditRepo.Append and ScheduledPostRepo.Create wrap their query in
// an OpenTelemetry span tagged with db.system/db.operation/db.sql.table.
// Every method returns errors wrapped as op=<entity>.<method>: %w so callers (and the retry/circuit-breaker
// wrapper in internal/store) can log a consistent operation name.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}
