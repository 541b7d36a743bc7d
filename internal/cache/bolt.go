package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const snapshotBucket = "snapshots"

// BoltStore is a single-file local cache. Entries older than ttl read as
// misses; a zero ttl keeps them forever.
type BoltStore struct {
	db     *bolt.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type boltEntry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// OpenBolt opens (or creates) the cache file at path
func OpenBolt(path string, ttl time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &BoltStore{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default().With("component", "bolt"),
	}, nil
}

func (b *BoltStore) Get(ctx context.Context, key string, target interface{}) (bool, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		if v := bucket.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bolt get failed for key %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	var e boltEntry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Value) == 0 {
		b.logger.Debug("dropping unreadable cache entry", "key", key)
		return false, nil
	}
	if !e.ExpiresAt.IsZero() && !b.now().Before(e.ExpiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.Value, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	return true, nil
}

func (b *BoltStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	e := boltEntry{Value: raw}
	if b.ttl > 0 {
		e.ExpiresAt = b.now().Add(b.ttl)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
