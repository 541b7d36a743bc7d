package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/smelltracker/internal/cache"
	"github.com/rohankatakam/smelltracker/internal/models"
)

const sampleFile = `
commits:
  - sha: aaa
    smells:
      - type: LIC
        instance: com.acme.Foo$Inner
        file: src/main/java/com/acme/Foo.java
      - type: BLOB
        instance: com.acme.God
  - sha: bbb
    smells: []
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smells.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	snap, err := m.SnapshotAt(ctx, "aaa")
	require.NoError(t, err)
	assert.Len(t, snap, 2)
	assert.True(t, snap.Has("LIC|com.acme.Foo$Inner"))

	snap, err = m.SnapshotAt(ctx, "bbb")
	require.NoError(t, err)
	assert.Empty(t, snap)

	_, err = m.SnapshotAt(ctx, "ccc")
	assert.ErrorIs(t, err, ErrNotCovered)

	covered, err := m.CoveredSHAs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"aaa": true, "bbb": true}, covered)
}

func TestParseYAMLRejectsIncompleteSmell(t *testing.T) {
	_, err := ParseYAML([]byte("commits:\n  - sha: aaa\n    smells:\n      - type: LIC\n"))
	assert.Error(t, err)
	_, err = ParseYAML([]byte("commits:\n  - smells: []\n"))
	assert.Error(t, err)
}

func TestSnapshotFromRecords(t *testing.T) {
	keys := []string{"type", "instance", "file"}
	records := []*neo4j.Record{
		{Keys: keys, Values: []any{"LIC", "com.acme.Foo$Inner", "Foo.java"}},
		{Keys: keys, Values: []any{"BLOB", "com.acme.God", nil}},
	}
	snap, err := snapshotFromRecords(records)
	require.NoError(t, err)
	assert.Len(t, snap, 2)
	assert.Equal(t, "Foo.java", snap["LIC|com.acme.Foo$Inner"].File)

	// covered commit without smells
	snap, err = snapshotFromRecords([]*neo4j.Record{{Keys: keys, Values: []any{nil, nil, nil}}})
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSnapshotFromRecordsRejectsMissingInstance(t *testing.T) {
	keys := []string{"type", "instance", "file"}
	tests := []struct {
		name     string
		instance any
	}{
		{"null instance", nil},
		{"empty instance", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := snapshotFromRecords([]*neo4j.Record{
				{Keys: keys, Values: []any{"BLOB", "com.acme.God", nil}},
				{Keys: keys, Values: []any{"LM", tt.instance, "Foo.java"}},
			})
			assert.ErrorContains(t, err, "has no instance")
		})
	}
}

type countingFeed struct {
	*Memory
	calls int
}

func (c *countingFeed) SnapshotAt(ctx context.Context, sha string) (models.Snapshot, error) {
	c.calls++
	return c.Memory.SnapshotAt(ctx, sha)
}

func TestCachedFeed(t *testing.T) {
	inner := &countingFeed{Memory: NewMemory()}
	inner.Set("aaa", models.SmellInstance{Type: "LIC", Instance: "x.Y"})
	f := NewCached(inner, cache.NewManager(nil, logrus.New()), "demo")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := f.SnapshotAt(ctx, "aaa")
		require.NoError(t, err)
		assert.True(t, snap.Has("LIC|x.Y"))

		_, err = f.SnapshotAt(ctx, "zzz")
		assert.ErrorIs(t, err, ErrNotCovered)
	}
	// uncovered commits are asked again every time
	assert.Equal(t, 4, inner.calls)
}

func TestCachedFeedPicksUpNewCoverage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	inner := NewMemory()
	inner.Set("aaa")

	open := func() *cache.Manager {
		store, err := cache.OpenBolt(path, 0)
		require.NoError(t, err)
		return cache.NewManager(store, logrus.New())
	}

	first := open()
	_, err := NewCached(inner, first, "demo").SnapshotAt(ctx, "xxx")
	require.ErrorIs(t, err, ErrNotCovered)
	require.NoError(t, first.Close())

	inner.Set("xxx", models.SmellInstance{Type: "BLOB", Instance: "com.acme.God"})
	second := open()
	defer second.Close()
	f := NewCached(inner, second, "demo")

	covered, err := f.CoveredSHAs(ctx)
	require.NoError(t, err)
	assert.True(t, covered["xxx"])
	snap, err := f.SnapshotAt(ctx, "xxx")
	require.NoError(t, err)
	assert.True(t, snap.Has("BLOB|com.acme.God"))
}

func TestThrottledPassesThrough(t *testing.T) {
	m := NewMemory()
	m.Set("aaa")
	f := NewThrottled(m, 0, 0)
	snap, err := f.SnapshotAt(context.Background(), "aaa")
	require.NoError(t, err)
	assert.Empty(t, snap)
}
