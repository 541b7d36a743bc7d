package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// PostgresStore implements Store on PostgreSQL. Lifecycle events are bulk
// loaded with COPY through the underlying pgx connection.
type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(ctx context.Context, dsn string, batchSize int, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PostgresStore{sqlStore{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
		idType:    "BIGSERIAL PRIMARY KEY",
	}}, nil
}

var eventColumnNames = []string{
	"project_id", "branch_ordinal", "seq", "smell_type", "instance", "category",
	"commit_sha", "since_ordinal", "until_ordinal",
}

// SaveLifecycleEvents replaces one branch's events inside a pgx transaction:
// smells are upserted with a pipelined batch, events are copied in.
func (s *PostgresStore) SaveLifecycleEvents(ctx context.Context, projectID int64, branchID int, events []models.LifecycleEvent) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		pgConn := driverConn.(*stdlib.Conn).Conn()
		tx, err := pgConn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, `DELETE FROM smell_event WHERE project_id = $1 AND branch_ordinal = $2`, projectID, branchID); err != nil {
			return fmt.Errorf("clear branch %d events: %w", branchID, err)
		}

		batch := &pgx.Batch{}
		seen := make(map[string]bool)
		rows := make([][]any, 0, len(events))
		for seq, e := range events {
			if !seen[e.Smell.Key()] {
				seen[e.Smell.Key()] = true
				batch.Queue(s.db.Rebind(smellUpsert), projectID, e.Smell.Type, e.Smell.Instance, e.Smell.File)
			}
			commitSHA, since, until := eventColumns(e)
			rows = append(rows, []any{projectID, branchID, seq, e.Smell.Type, e.Smell.Instance,
				string(e.Category), commitSHA, since, until})
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("save smells: %w", err)
			}
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"smell_event"}, eventColumnNames, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy branch %d events: %w", branchID, err)
		}
		s.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"branch":     branchID,
			"events":     n,
		}).Debug("branch events copied")
		return tx.Commit(ctx)
	})
}
