package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements Store on SQLite, for local runs and tests
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens path (":memory:" for an in-memory database) and
// creates the schema.
func NewSQLiteStore(ctx context.Context, path string, batchSize int, logger *logrus.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	// one writer; also keeps an in-memory database on a single connection
	db.SetMaxOpenConns(1)
	db.MustExecContext(ctx, "PRAGMA foreign_keys = ON")
	if path != ":memory:" {
		db.MustExecContext(ctx, "PRAGMA journal_mode = WAL")
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	store := &SQLiteStore{sqlStore{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
		idType:    "INTEGER PRIMARY KEY AUTOINCREMENT",
	}}
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
