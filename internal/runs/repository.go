package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/huddle/internal/store"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Repository handles persistence for ingest runs.
type Repository struct {
	db *store.Database
}

// NewRepository constructs a Repository.
func NewRepository(db *store.Database) *Repository {
	return &Repository{db: db}
}

const runColumns = `run_id, variant, trigger_source, status, fetched, valid, invalid,
	written, failed_batches, last_error, started_at, completed_at`

// Create inserts a running row.
func (r *Repository) Create(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO ingest_runs (run_id, variant, trigger_source, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.DB().ExecContext(ctx, query, run.RunID, string(run.Variant), string(run.Trigger), string(run.Status), run.StartedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish stores the final status, counters and optional error.
func (r *Repository) Finish(ctx context.Context, run *Run) error {
	query := `
		UPDATE ingest_runs
		SET status = $2,
			fetched = $3,
			valid = $4,
			invalid = $5,
			written = $6,
			failed_batches = $7,
			last_error = $8,
			completed_at = $9
		WHERE run_id = $1
	`

	var errText sql.NullString
	if run.LastError != "" {
		errText = sql.NullString{String: run.LastError, Valid: true}
	}

	var completed sql.NullTime
	if run.CompletedAt != nil {
		completed = sql.NullTime{Time: *run.CompletedAt, Valid: true}
	}

	_, err := r.db.DB().ExecContext(ctx, query,
		run.RunID, string(run.Status), run.Fetched, run.Valid, run.Invalid,
		run.Written, run.FailedBatches, errText, completed,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ResetStuck marks runs left running by a previous process as failed.
func (r *Repository) ResetStuck(ctx context.Context) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE ingest_runs
		SET status = 'failed',
			last_error = $1,
			completed_at = NOW()
		WHERE status = 'running'
	`, interruptedMessage)
	if err != nil {
		return 0, fmt.Errorf("reset stuck runs: %w", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// Get returns one run by id.
func (r *Repository) Get(ctx context.Context, runID string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM ingest_runs WHERE run_id = $1`

	run, err := scanRun(r.db.DB().QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRecent returns the most recently started runs.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM ingest_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func scanRun(scanner interface {
	Scan(dest ...interface{}) error
}) (*Run, error) {
	run := &Run{}
	var (
		lastError   sql.NullString
		completedAt sql.NullTime
	)

	err := scanner.Scan(
		&run.RunID,
		&run.Variant,
		&run.Trigger,
		&run.Status,
		&run.Fetched,
		&run.Valid,
		&run.Invalid,
		&run.Written,
		&run.FailedBatches,
		&lastError,
		&run.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.LastError = lastError.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}
