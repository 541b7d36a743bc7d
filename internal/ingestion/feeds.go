package ingestion

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/smelltracker/internal/cache"
	"github.com/rohankatakam/smelltracker/internal/config"
	"github.com/rohankatakam/smelltracker/internal/feed"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// FeedBuilder opens per-project smell feeds. Graph feeds are throttled and
// cached; snapshot files are already in memory and used as is.
type FeedBuilder struct {
	cfg    *config.Config
	cache  *cache.Manager
	logger *logrus.Logger
}

// NewFeedBuilder opens the snapshot cache backend named by cfg.Cache.Backend
func NewFeedBuilder(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*FeedBuilder, error) {
	var backend cache.Store
	switch cfg.Cache.Backend {
	case "bolt":
		store, err := cache.OpenBolt(filepath.Join(cfg.Cache.Directory, "snapshots.db"), cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		backend = store
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		backend = store
	case "none", "":
		return &FeedBuilder{cfg: cfg, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	logger.WithField("backend", cfg.Cache.Backend).Debug("Snapshot cache opened")
	return &FeedBuilder{cfg: cfg, cache: cache.NewManager(backend, logger), logger: logger}, nil
}

// Open is a FeedOpener. A project-level feed file takes precedence over
// the configured source.
func (b *FeedBuilder) Open(ctx context.Context, project *models.Project) (feed.Feed, func(), error) {
	path := project.FeedPath
	if path == "" && b.cfg.Feed.Source == "file" {
		path = b.cfg.Feed.Path
	}
	if path != "" {
		f, err := feed.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	}

	if b.cfg.Feed.Source != "neo4j" {
		return nil, nil, fmt.Errorf("unknown feed source %q", b.cfg.Feed.Source)
	}
	graph, err := feed.NewGraphFeed(ctx, b.cfg.Neo4j.URI, b.cfg.Neo4j.User, b.cfg.Neo4j.Password, b.cfg.Neo4j.Database, project.Name)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := graph.Close(context.Background()); err != nil {
			b.logger.WithError(err).Warn("Failed to close smell feed")
		}
	}

	var f feed.Feed = feed.NewThrottled(graph, b.cfg.Feed.RateLimit, b.cfg.Feed.Burst)
	if b.cache != nil {
		f = feed.NewCached(f, b.cache, project.Name)
	}
	return f, release, nil
}

// CacheStats reports snapshot cache hits and misses
func (b *FeedBuilder) CacheStats() (hits, misses int64) {
	if b.cache == nil {
		return 0, 0
	}
	return b.cache.Stats()
}

// Close releases the cache backend
func (b *FeedBuilder) Close() error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Close()
}
