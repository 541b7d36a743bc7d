// Package feed reads smell snapshots produced by an external static analyzer.
package feed

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// ErrNotCovered is returned by SnapshotAt for commits the analyzer skipped
var ErrNotCovered = stderrors.New("commit not covered by smell feed")

// Feed is a per-commit source of smell snapshots
type Feed interface {
	// SnapshotAt returns the smells present at sha, or ErrNotCovered
	SnapshotAt(ctx context.Context, sha string) (models.Snapshot, error)
	// CoveredSHAs lists every commit the analyzer processed
	CoveredSHAs(ctx context.Context) (map[string]bool, error)
}

func notCovered(sha string) error {
	return fmt.Errorf("%s: %w", sha, ErrNotCovered)
}

// Memory is a Feed held in memory, used for snapshot files and tests
type Memory struct {
	snapshots map[string]models.Snapshot
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]models.Snapshot)}
}

// Set records the snapshot for sha, marking it covered
func (m *Memory) Set(sha string, smells ...models.SmellInstance) {
	m.snapshots[sha] = models.NewSnapshot(smells...)
}

func (m *Memory) SnapshotAt(ctx context.Context, sha string) (models.Snapshot, error) {
	s, ok := m.snapshots[sha]
	if !ok {
		return nil, notCovered(sha)
	}
	return s.Clone(), nil
}

func (m *Memory) CoveredSHAs(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(m.snapshots))
	for sha := range m.snapshots {
		out[sha] = true
	}
	return out, nil
}
