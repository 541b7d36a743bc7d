package dlq

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rohankatakam/smelltracker/internal/errors"
)

// MaxRetries is the retry count after which a failed branch is reported as exhausted
const MaxRetries = 5

// Entry represents a branch whose lifecycle analysis failed
type Entry struct {
	ID           int64                  `db:"id"`
	ProjectID    int64                  `db:"project_id"`
	BranchID     int                    `db:"branch_id"`
	RunID        sql.NullString         `db:"run_id"`
	ErrorMessage string                 `db:"error_message"`
	RetryCount   int                    `db:"retry_count"`
	MetadataJSON sql.NullString         `db:"metadata"`
	CreatedAt    time.Time              `db:"created_at"`
	UpdatedAt    time.Time              `db:"updated_at"`
	Metadata     map[string]interface{} `db:"-"`
}

// Queue records failed branches so they can be reviewed and retried.
// If a branch already has an entry, retry_count is incremented.
type Queue struct {
	db     *sqlx.DB
	runID  string
	logger *slog.Logger
}

// NewQueue creates a DLQ over the analysis_failure table
func NewQueue(db *sqlx.DB) *Queue {
	return &Queue{
		db:     db,
		runID:  uuid.NewString(),
		logger: slog.Default().With("component", "dlq"),
	}
}

// WithRun tags subsequent entries with runID
func (q *Queue) WithRun(runID string) *Queue {
	return &Queue{db: q.db, runID: runID, logger: q.logger.With("run_id", runID)}
}

// RunID is the identifier stored with new entries
func (q *Queue) RunID() string {
	return q.runID
}

// RecordBranchFailure adds a failed branch to the DLQ
func (q *Queue) RecordBranchFailure(ctx context.Context, projectID int64, branchID int, cause error) error {
	metadata := map[string]interface{}{
		"type":     errors.GetType(cause).String(),
		"severity": errors.GetSeverity(cause).String(),
	}
	var e *errors.Error
	if stderrors.As(cause, &e) {
		for k, v := range e.Context {
			metadata[k] = v
		}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = q.db.ExecContext(ctx, q.db.Rebind(`
		INSERT INTO analysis_failure (project_id, branch_id, run_id, error_message, retry_count, metadata)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (project_id, branch_id) DO UPDATE
		SET retry_count = analysis_failure.retry_count + 1,
		    run_id = excluded.run_id,
		    error_message = excluded.error_message,
		    metadata = excluded.metadata,
		    updated_at = CURRENT_TIMESTAMP
	`), projectID, branchID, q.runID, cause.Error(), string(metadataJSON))
	if err != nil {
		return fmt.Errorf("failed to enqueue branch to DLQ: %w", err)
	}

	q.logger.Warn("branch enqueued to DLQ",
		"project_id", projectID,
		"branch_id", branchID,
		"error", cause.Error(),
	)
	return nil
}

// List returns the failures of a project, most recent first. limit <= 0
// returns all of them.
func (q *Queue) List(ctx context.Context, projectID int64, limit int) ([]Entry, error) {
	query := `
		SELECT id, project_id, branch_id, run_id, error_message, retry_count, metadata, created_at, updated_at
		FROM analysis_failure
		WHERE project_id = ?
		ORDER BY updated_at DESC, branch_id
	`
	args := []interface{}{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var entries []Entry
	if err := q.db.SelectContext(ctx, &entries, q.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query DLQ: %w", err)
	}
	for i := range entries {
		entries[i].Metadata = make(map[string]interface{})
		if !entries[i].MetadataJSON.Valid {
			continue
		}
		if err := json.Unmarshal([]byte(entries[i].MetadataJSON.String), &entries[i].Metadata); err != nil {
			q.logger.Warn("failed to unmarshal metadata", "entry_id", entries[i].ID, "error", err)
		}
	}
	return entries, nil
}

// MarkResolved removes a branch from the DLQ after a successful retry
func (q *Queue) MarkResolved(ctx context.Context, projectID int64, branchID int) error {
	result, err := q.db.ExecContext(ctx, q.db.Rebind(`
		DELETE FROM analysis_failure WHERE project_id = ? AND branch_id = ?
	`), projectID, branchID)
	if err != nil {
		return fmt.Errorf("failed to delete DLQ entry: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		q.logger.Info("branch resolved and removed from DLQ",
			"project_id", projectID,
			"branch_id", branchID,
		)
	}
	return nil
}

// Stats contains DLQ statistics
type Stats struct {
	ProjectID        int64
	TotalEntries     int `db:"total"`
	RetryableEntries int `db:"retryable"`
	ExhaustedRetries int `db:"exhausted"`
}

// GetStats returns DLQ statistics for a project
func (q *Queue) GetStats(ctx context.Context, projectID int64) (*Stats, error) {
	var stats Stats
	err := q.db.GetContext(ctx, &stats, q.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN retry_count >= ? THEN 1 ELSE 0 END), 0) AS exhausted,
			COALESCE(SUM(CASE WHEN retry_count < ? THEN 1 ELSE 0 END), 0) AS retryable
		FROM analysis_failure
		WHERE project_id = ?
	`), MaxRetries, MaxRetries, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ stats: %w", err)
	}
	stats.ProjectID = projectID
	return &stats, nil
}

// PurgeOld removes DLQ entries older than the specified duration
func (q *Queue) PurgeOld(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC()

	result, err := q.db.ExecContext(ctx, q.db.Rebind(`
		DELETE FROM analysis_failure WHERE updated_at < ?
	`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old DLQ entries: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		q.logger.Info("purged old DLQ entries",
			"count", rows,
			"older_than", olderThan,
		)
	}
	return int(rows), nil
}

// ProjectFailure is the branch id recorded when a whole project run fails
const ProjectFailure = -1
