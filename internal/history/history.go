// Package history keeps an execution audit trail in PostgreSQL. It sits
// beside the queue, never in front of it: queue state lives only in Redis.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourorg/relayq/internal/domain"
)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store writes execution_log rows. It satisfies worker.Recorder.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Start inserts the execution_log row before the handler runs.
func (s *Store) Start(ctx context.Context, e *domain.Execution) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO execution_log
			(id, worker_id, worker_hostname, queue, mid, lock_ms, started_at, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.WorkerID, e.Hostname, e.Queue, e.MID,
		e.Lock.Milliseconds(), e.StartedAt, string(e.Outcome))
	if err != nil {
		return fmt.Errorf("insert execution %s: %w", e.ID, err)
	}
	return nil
}

// Finish records the outcome. Rows already finished are left untouched.
func (s *Store) Finish(ctx context.Context, e *domain.Execution) error {
	_, err := s.db.Exec(ctx, `
		UPDATE execution_log
		SET finished_at = $1, outcome = $2, error_message = $3, job_type = $4
		WHERE id = $5
		  AND finished_at IS NULL`,
		e.FinishedAt, string(e.Outcome), e.Error, e.JobType, e.ID)
	if err != nil {
		return fmt.Errorf("finish execution %s: %w", e.ID, err)
	}
	return nil
}

// ForMID returns every recorded execution of mid on queue, oldest first.
func (s *Store) ForMID(ctx context.Context, queue string, mid int64) ([]domain.Execution, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, worker_id, worker_hostname, queue, mid, job_type,
		       lock_ms, started_at, finished_at, outcome, error_message
		FROM execution_log
		WHERE queue = $1 AND mid = $2
		ORDER BY started_at ASC`, queue, mid)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	return collect(rows)
}

// Recent returns the latest limit executions across all queues.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Execution, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, worker_id, worker_hostname, queue, mid, job_type,
		       lock_ms, started_at, finished_at, outcome, error_message
		FROM execution_log
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]domain.Execution, error) {
	return pgx.CollectRows(rows, scanExecution)
}

func scanExecution(row pgx.CollectableRow) (domain.Execution, error) {
	var (
		e       domain.Execution
		id, wid uuid.UUID
		lockMs  int64
		outcome string
	)
	err := row.Scan(&id, &wid, &e.Hostname, &e.Queue, &e.MID, &e.JobType,
		&lockMs, &e.StartedAt, &e.FinishedAt, &outcome, &e.Error)
	if err != nil {
		return domain.Execution{}, err
	}
	e.ID, e.WorkerID = id, wid
	e.Lock = time.Duration(lockMs) * time.Millisecond
	e.Outcome = domain.Outcome(outcome)
	return e, nil
}
