package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Manager layers an in-process memory cache over an optional persistent Store.
// Backend errors are logged and treated as misses.
type Manager struct {
	backend  Store
	memCache *gocache.Cache
	logger   *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager creates a manager; backend may be nil for memory-only caching
func NewManager(backend Store, logger *logrus.Logger) *Manager {
	return &Manager{
		backend:  backend,
		memCache: gocache.New(30*time.Minute, 10*time.Minute),
		logger:   logger,
	}
}

// Get looks in memory first, then in the backend. target must be a pointer.
func (m *Manager) Get(ctx context.Context, key string, target interface{}) (bool, error) {
	if v, ok := m.memCache.Get(key); ok {
		if raw, ok := v.([]byte); ok {
			if err := json.Unmarshal(raw, target); err == nil {
				m.hits.Add(1)
				return true, nil
			}
		}
	}
	if m.backend == nil {
		m.misses.Add(1)
		return false, nil
	}

	found, err := m.backend.Get(ctx, key, target)
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("cache backend read failed")
		m.misses.Add(1)
		return false, nil
	}
	if !found {
		m.misses.Add(1)
		return false, nil
	}
	if raw, err := json.Marshal(target); err == nil {
		m.memCache.SetDefault(key, raw)
	}
	m.hits.Add(1)
	return true, nil
}

// Set writes through to memory and the backend
func (m *Manager) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.memCache.SetDefault(key, raw)
	if m.backend == nil {
		return nil
	}
	if err := m.backend.Set(ctx, key, value); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("cache backend write failed")
	}
	return nil
}

// Stats returns hit and miss counts since creation
func (m *Manager) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

func (m *Manager) Close() error {
	m.memCache.Flush()
	if m.backend != nil {
		return m.backend.Close()
	}
	return nil
}
