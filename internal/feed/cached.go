package feed

import (
	"context"

	"github.com/rohankatakam/smelltracker/internal/cache"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// SnapshotCache is the subset of cache.Manager the feed uses
type SnapshotCache interface {
	Get(ctx context.Context, key string, target interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Cached memoizes snapshots per (project, commit). Only covered commits are
// stored; coverage can grow between runs, so "not covered" is always asked
// of the underlying feed.
type Cached struct {
	next    Feed
	cache   SnapshotCache
	project string
}

type cachedSnapshot struct {
	Covered bool                   `json:"covered"`
	Smells  []models.SmellInstance `json:"smells"`
}

func NewCached(next Feed, c SnapshotCache, project string) *Cached {
	return &Cached{next: next, cache: c, project: project}
}

func (c *Cached) SnapshotAt(ctx context.Context, sha string) (models.Snapshot, error) {
	key := cache.SnapshotKey(c.project, sha)
	var hit cachedSnapshot
	if found, err := c.cache.Get(ctx, key, &hit); err == nil && found && hit.Covered {
		return models.NewSnapshot(hit.Smells...), nil
	}

	snap, err := c.next.SnapshotAt(ctx, sha)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, cachedSnapshot{Covered: true, Smells: snap.Sorted()})
	return snap, nil
}

func (c *Cached) CoveredSHAs(ctx context.Context) (map[string]bool, error) {
	return c.next.CoveredSHAs(ctx)
}
