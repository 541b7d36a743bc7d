package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// sqlStore holds the dialect-neutral queries. Statements are written with
// '?' placeholders and rebound for the driver.
type sqlStore struct {
	db        *sqlx.DB
	logger    *logrus.Logger
	batchSize int
	idType    string
}

func (s *sqlStore) DB() *sqlx.DB {
	return s.db
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaFor(s.idType) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) SaveProject(ctx context.Context, project *models.Project) (int64, error) {
	var id int64
	query := s.db.Rebind(`
		INSERT INTO project (name, url) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET url = excluded.url
		RETURNING id
	`)
	if err := s.db.QueryRowxContext(ctx, query, project.Name, project.URL).Scan(&id); err != nil {
		return 0, fmt.Errorf("save project %s: %w", project.Name, err)
	}
	project.ID = id
	return id, nil
}

func (s *sqlStore) GetProject(ctx context.Context, name string) (*models.Project, error) {
	var p models.Project
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT id, name, COALESCE(url, '') AS url FROM project WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// SaveCommits writes commit entries, developers and renames in batches
func (s *sqlStore) SaveCommits(ctx context.Context, projectID int64, records []models.CommitRecord) error {
	developers := make(map[string]int64)
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		if err := s.saveCommitBatch(ctx, projectID, records[start:end], developers); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"written":    end,
			"total":      len(records),
		}).Debug("commit batch saved")
	}
	return nil
}

func (s *sqlStore) saveCommitBatch(ctx context.Context, projectID int64, records []models.CommitRecord, developers map[string]int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	commitStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO commit_entry (project_id, developer_id, sha1, ordinal, date, message,
			additions, deletions, files_changed, merged_commit, in_detector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, sha1) DO UPDATE SET
			ordinal = excluded.ordinal,
			in_detector = excluded.in_detector
	`))
	if err != nil {
		return fmt.Errorf("prepare commit insert: %w", err)
	}
	defer commitStmt.Close()

	renameStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO file_rename (project_id, commit_sha, old_file, new_file, similarity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id, commit_sha, old_file, new_file) DO NOTHING
	`))
	if err != nil {
		return fmt.Errorf("prepare rename insert: %w", err)
	}
	defer renameStmt.Close()

	for _, r := range records {
		c := r.Commit
		var devID sql.NullInt64
		if c.AuthorEmail != "" {
			id, err := s.developerID(ctx, tx, projectID, c.AuthorEmail, developers)
			if err != nil {
				return err
			}
			devID = sql.NullInt64{Int64: id, Valid: true}
		}

		var merged sql.NullString
		if p := c.MergedParent(); p != "" {
			merged = sql.NullString{String: p, Valid: true}
		}
		var additions, deletions, files sql.NullInt64
		if r.Details != nil {
			additions = sql.NullInt64{Int64: int64(r.Details.Additions), Valid: true}
			deletions = sql.NullInt64{Int64: int64(r.Details.Deletions), Valid: true}
			files = sql.NullInt64{Int64: int64(r.Details.FilesChanged), Valid: true}
		}

		if _, err := commitStmt.ExecContext(ctx, projectID, devID, c.SHA, c.Ordinal, c.Timestamp.UTC(), c.Message,
			additions, deletions, files, merged, c.Covered); err != nil {
			return fmt.Errorf("save commit %s: %w", c.ShortSHA(), err)
		}

		if r.Details == nil {
			continue
		}
		for _, rn := range r.Details.Renames {
			if _, err := renameStmt.ExecContext(ctx, projectID, c.SHA, rn.OldFile, rn.NewFile, rn.Similarity); err != nil {
				return fmt.Errorf("save rename in %s: %w", c.ShortSHA(), err)
			}
		}
	}
	return tx.Commit()
}

func (s *sqlStore) developerID(ctx context.Context, tx *sqlx.Tx, projectID int64, email string, cache map[string]int64) (int64, error) {
	if id, ok := cache[email]; ok {
		return id, nil
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO developer (email) VALUES (?) ON CONFLICT (email) DO NOTHING`), email); err != nil {
		return 0, fmt.Errorf("save developer: %w", err)
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM developer WHERE email = ?`), email); err != nil {
		return 0, fmt.Errorf("load developer: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO project_developer (project_id, developer_id) VALUES (?, ?)
		ON CONFLICT (project_id, developer_id) DO NOTHING
	`), projectID, id); err != nil {
		return 0, fmt.Errorf("link developer: %w", err)
	}
	cache[email] = id
	return id, nil
}

// SaveBranches writes branch rows and their commit memberships
func (s *sqlStore) SaveBranches(ctx context.Context, projectID int64, branches []*models.Branch) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	branchQuery := tx.Rebind(`
		INSERT INTO branch (project_id, ordinal, fork_commit, merge_commit, is_trunk)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id, ordinal) DO UPDATE SET
			fork_commit = excluded.fork_commit,
			merge_commit = excluded.merge_commit,
			is_trunk = excluded.is_trunk
	`)
	memberStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO branch_commit (project_id, branch_ordinal, commit_sha, ordinal)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, commit_sha) DO UPDATE SET
			branch_ordinal = excluded.branch_ordinal,
			ordinal = excluded.ordinal
	`))
	if err != nil {
		return fmt.Errorf("prepare branch commit insert: %w", err)
	}
	defer memberStmt.Close()

	for _, b := range branches {
		if _, err := tx.ExecContext(ctx, branchQuery, projectID, b.ID,
			nullSHA(b.ForkPoint), nullSHA(b.MergePoint), b.IsTrunk()); err != nil {
			return fmt.Errorf("save branch %d: %w", b.ID, err)
		}
		for i, c := range b.Commits {
			if _, err := memberStmt.ExecContext(ctx, projectID, b.ID, c.SHA, i); err != nil {
				return fmt.Errorf("save branch %d commit %s: %w", b.ID, c.ShortSHA(), err)
			}
		}
	}
	return tx.Commit()
}

// SaveLifecycleEvents replaces the events of one branch. seq preserves the
// order the events were emitted in.
func (s *sqlStore) SaveLifecycleEvents(ctx context.Context, projectID int64, branchID int, events []models.LifecycleEvent) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM smell_event WHERE project_id = ? AND branch_ordinal = ?`), projectID, branchID); err != nil {
		return fmt.Errorf("clear branch %d events: %w", branchID, err)
	}

	smellStmt, err := tx.PreparexContext(ctx, tx.Rebind(smellUpsert))
	if err != nil {
		return fmt.Errorf("prepare smell insert: %w", err)
	}
	defer smellStmt.Close()

	eventStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO smell_event (project_id, branch_ordinal, seq, smell_type, instance, category,
			commit_sha, since_ordinal, until_ordinal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer eventStmt.Close()

	seen := make(map[string]bool)
	for seq, e := range events {
		if !seen[e.Smell.Key()] {
			seen[e.Smell.Key()] = true
			if _, err := smellStmt.ExecContext(ctx, projectID, e.Smell.Type, e.Smell.Instance, e.Smell.File); err != nil {
				return fmt.Errorf("save smell %s: %w", e.Smell, err)
			}
		}
		commitSHA, since, until := eventColumns(e)
		if _, err := eventStmt.ExecContext(ctx, projectID, branchID, seq, e.Smell.Type, e.Smell.Instance,
			string(e.Category), commitSHA, since, until); err != nil {
			return fmt.Errorf("save event %d of branch %d: %w", seq, branchID, err)
		}
	}
	return tx.Commit()
}

const smellUpsert = `
	INSERT INTO smell (project_id, type, instance, file) VALUES (?, ?, ?, ?)
	ON CONFLICT (project_id, type, instance) DO NOTHING
`

func eventColumns(e models.LifecycleEvent) (sql.NullString, sql.NullInt64, sql.NullInt64) {
	if e.Category == models.CategoryLost {
		return sql.NullString{},
			sql.NullInt64{Int64: int64(e.Since), Valid: true},
			sql.NullInt64{Int64: int64(e.Until), Valid: true}
	}
	return sql.NullString{String: e.CommitSHA, Valid: true}, sql.NullInt64{}, sql.NullInt64{}
}

func (s *sqlStore) ListBranches(ctx context.Context, projectID int64) ([]BranchRow, error) {
	var rows []BranchRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT b.project_id, b.ordinal, b.fork_commit, b.merge_commit, b.is_trunk,
			(SELECT COUNT(*) FROM branch_commit bc
			 WHERE bc.project_id = b.project_id AND bc.branch_ordinal = b.ordinal) AS commits
		FROM branch b
		WHERE b.project_id = ?
		ORDER BY b.ordinal
	`), projectID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return rows, nil
}

func (s *sqlStore) ListEvents(ctx context.Context, projectID int64, branchID int) ([]EventRow, error) {
	var rows []EventRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT project_id, branch_ordinal, seq, smell_type, instance, category,
			commit_sha, since_ordinal, until_ordinal
		FROM smell_event
		WHERE project_id = ? AND branch_ordinal = ?
		ORDER BY seq
	`), projectID, branchID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return rows, nil
}

func (s *sqlStore) CountEvents(ctx context.Context, projectID int64) (map[models.Category]int, error) {
	var rows []struct {
		Category string `db:"category"`
		N        int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT category, COUNT(*) AS n FROM smell_event WHERE project_id = ? GROUP BY category
	`), projectID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	out := make(map[models.Category]int, len(rows))
	for _, r := range rows {
		out[models.Category(r.Category)] = r.N
	}
	return out, nil
}

// SaveTags upserts the project's tags; a moved tag takes its new commit
func (s *sqlStore) SaveTags(ctx context.Context, projectID int64, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO tag (project_id, name, commit_sha, date) VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, name) DO UPDATE SET commit_sha = excluded.commit_sha, date = excluded.date
	`))
	if err != nil {
		return fmt.Errorf("prepare tag insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tags {
		if _, err := stmt.ExecContext(ctx, projectID, t.Name, t.CommitSHA, t.Date.UTC()); err != nil {
			return fmt.Errorf("save tag %s: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

func (s *sqlStore) ListTags(ctx context.Context, projectID int64) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.SelectContext(ctx, &tags, s.db.Rebind(`
		SELECT name, commit_sha, date FROM tag WHERE project_id = ? ORDER BY date, name
	`), projectID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func nullSHA(c *models.Commit) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.SHA, Valid: true}
}
