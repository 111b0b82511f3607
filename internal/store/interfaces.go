package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// QuotaStore tracks the per-day upload counter.
type QuotaStore interface {
	// GetDailyCount returns the number of uploads recorded for day, or 0 if no row exists.
	GetDailyCount(ctx context.Context, day time.Time) (int, error)

	// IncrementDailyCount atomically creates or increments the row for day.
	IncrementDailyCount(ctx context.Context, tx DBTransaction, day time.Time) error
}

// QueueStore claims pending jobs and records their terminal state.
type QueueStore interface {
	// ClaimPending returns up to limit PENDING jobs, oldest first.
	// It does not lock or mark the rows.
	ClaimPending(ctx context.Context, limit int) ([]QueueJob, error)

	// ResolveActNames maps act IDs to names. Unknown IDs are absent from the result.
	ResolveActNames(ctx context.Context, actIDs []string) (map[string]string, error)

	// ResolveUserNames maps user IDs to display names.
	ResolveUserNames(ctx context.Context, userIDs []string) (map[string]string, error)

	// MarkUploaded transitions a PENDING job to UPLOADED.
	MarkUploaded(ctx context.Context, tx DBTransaction, jobID string, resultURL string) error

	// MarkFailed transitions a PENDING job to FAILED with errMsg.
	MarkFailed(ctx context.Context, tx DBTransaction, jobID string, errMsg string) error
}

// VideoStore persists the records created after a successful upload.
type VideoStore interface {
	// CreateVideo inserts the video row plus one link row per act and per performer.
	CreateVideo(ctx context.Context, tx DBTransaction, video *VideoRecord) error
}

// Store is everything the processor needs from the database.
type Store interface {
	QuotaStore
	QueueStore
	VideoStore

	// BeginTx starts the transaction that scopes one job's reconciliation.
	BeginTx(ctx context.Context) (Tx, error)
}
