package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// ValidationResult compares what a run produced with what was stored
type ValidationResult struct {
	EntityType      string
	Expected        int64
	Stored          int64
	PassedThreshold bool
}

// Expected holds the in-memory counts of an analysis run
type Expected struct {
	Commits int
	Events  int
}

// ConsistencyValidator checks the stored rows of a project after analysis
type ConsistencyValidator struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewConsistencyValidator creates a new consistency validator
func NewConsistencyValidator(db *sqlx.DB) *ConsistencyValidator {
	return &ConsistencyValidator{
		db:     db,
		logger: slog.Default().With("component", "validation"),
	}
}

// ValidateAfterAnalysis checks that every commit was stored and owned by
// exactly one branch, that every event was stored and that no event
// references an unknown smell.
func (v *ConsistencyValidator) ValidateAfterAnalysis(ctx context.Context, projectID int64, want Expected) ([]ValidationResult, error) {
	checks := []struct {
		entity   string
		query    string
		expected int64
	}{
		{"Commits", `SELECT COUNT(*) FROM commit_entry WHERE project_id = ?`, int64(want.Commits)},
		{"BranchCommits", `SELECT COUNT(*) FROM branch_commit WHERE project_id = ?`, int64(want.Commits)},
		{"Events", `SELECT COUNT(*) FROM smell_event WHERE project_id = ?`, int64(want.Events)},
		{"OrphanEvents", `
			SELECT COUNT(*) FROM smell_event e
			WHERE e.project_id = ? AND NOT EXISTS (
				SELECT 1 FROM smell s
				WHERE s.project_id = e.project_id AND s.type = e.smell_type AND s.instance = e.instance
			)`, 0},
	}

	results := make([]ValidationResult, 0, len(checks))
	for _, c := range checks {
		var stored int64
		if err := v.db.GetContext(ctx, &stored, v.db.Rebind(c.query), projectID); err != nil {
			return nil, fmt.Errorf("failed to validate %s: %w", c.entity, err)
		}
		results = append(results, ValidationResult{
			EntityType:      c.entity,
			Expected:        c.expected,
			Stored:          stored,
			PassedThreshold: stored == c.expected,
		})
	}
	return results, nil
}

// LogResults logs validation results and reports whether all passed
func (v *ConsistencyValidator) LogResults(results []ValidationResult) bool {
	allPassed := true
	for _, r := range results {
		if r.PassedThreshold {
			v.logger.Debug("consistency check passed", "entity", r.EntityType, "stored", r.Stored)
			continue
		}
		allPassed = false
		v.logger.Warn("consistency check failed",
			"entity", r.EntityType,
			"expected", r.Expected,
			"stored", r.Stored,
		)
	}
	return allPassed
}
