package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/rohankatakam/smelltracker/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// DefaultBatchSize is the number of rows written per transaction
const DefaultBatchSize = 1000

// Store persists projects, commits, branches and smell lifecycle events
type Store interface {
	InitSchema(ctx context.Context) error

	SaveProject(ctx context.Context, project *models.Project) (int64, error)
	GetProject(ctx context.Context, name string) (*models.Project, error)

	SaveCommits(ctx context.Context, projectID int64, records []models.CommitRecord) error
	SaveBranches(ctx context.Context, projectID int64, branches []*models.Branch) error
	SaveTags(ctx context.Context, projectID int64, tags []models.Tag) error
	SaveLifecycleEvents(ctx context.Context, projectID int64, branchID int, events []models.LifecycleEvent) error

	ListBranches(ctx context.Context, projectID int64) ([]BranchRow, error)
	ListEvents(ctx context.Context, projectID int64, branchID int) ([]EventRow, error)
	CountEvents(ctx context.Context, projectID int64) (map[models.Category]int, error)
	ListTags(ctx context.Context, projectID int64) ([]models.Tag, error)

	// DB exposes the connection for auxiliary tables (dead-letter queue)
	DB() *sqlx.DB
	Close() error
}

// BranchRow is a persisted branch
type BranchRow struct {
	ProjectID   int64          `db:"project_id"`
	Ordinal     int            `db:"ordinal"`
	ForkCommit  sql.NullString `db:"fork_commit"`
	MergeCommit sql.NullString `db:"merge_commit"`
	IsTrunk     bool           `db:"is_trunk"`
	Commits     int            `db:"commits"`
}

// EventRow is a persisted lifecycle event
type EventRow struct {
	ProjectID     int64          `db:"project_id"`
	BranchOrdinal int            `db:"branch_ordinal"`
	Seq           int            `db:"seq"`
	SmellType     string         `db:"smell_type"`
	Instance      string         `db:"instance"`
	Category      string         `db:"category"`
	CommitSHA     sql.NullString `db:"commit_sha"`
	SinceOrdinal  sql.NullInt64  `db:"since_ordinal"`
	UntilOrdinal  sql.NullInt64  `db:"until_ordinal"`
}
