// Package cache keeps smell snapshots close to the analyzer so repeated runs
// over the same project avoid re-querying the feed.
package cache

import (
	"context"
	"fmt"
)

// Store is a JSON key/value cache. Get reports a miss as (false, nil).
type Store interface {
	Get(ctx context.Context, key string, target interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Close() error
}

// SnapshotKey is the cache key of one project's snapshot at one commit
func SnapshotKey(project, sha string) string {
	return fmt.Sprintf("smelltracker:snapshot:%s:%s", project, sha)
}
