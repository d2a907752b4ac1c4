package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSessionSweep removes expired session records from postgres.
	TaskTypeSessionSweep = "session:sweep"
	// TaskTypeAuditPrune trims audit log rows past the retention window.
	TaskTypeAuditPrune = "audit:prune"
)

// AuditPrunePayload sets the retention window for an audit prune run.
type AuditPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewSessionSweepTask constructs a session sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionSweep, nil)
}

// NewAuditPruneTask constructs an audit prune task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditPrune, data), nil
}

// HandleSessionSweepTask deletes session rows whose expiry has passed. The
// Redis copies expire on their own; this keeps the postgres audit trail of
// sessions from growing without bound.
func HandleSessionSweepTask(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tag, err := pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("session sweep executed", slog.Int64("removed", tag.RowsAffected()))
		}
		return nil
	}
}

// HandleAuditPruneTask deletes audit rows older than the retention window.
func HandleAuditPruneTask(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		cutoff := time.Now().Add(-payload.Retention)
		tag, err := pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("audit prune executed",
				slog.Time("cutoff", cutoff),
				slog.Int64("removed", tag.RowsAffected()))
		}
		return nil
	}
}
