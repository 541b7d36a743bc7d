package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/smelltracker/internal/config"
	"github.com/rohankatakam/smelltracker/internal/dlq"
	"github.com/rohankatakam/smelltracker/internal/models"
)

type fakeAnalyzer struct {
	fail    map[string]bool
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, p *models.Project) (*Result, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	result := &Result{Project: p.Name, ProjectID: int64(len(p.Name)), RunID: "run-" + p.Name}
	if f.fail[p.Name] {
		return result, errors.New("graph exploded")
	}
	return result, nil
}

func TestAnalyzeAllIsolatesFailures(t *testing.T) {
	store := newStore(t)
	analyzer := &fakeAnalyzer{fail: map[string]bool{"beta": true}}
	runner := NewRunner(analyzer, store, 2, testLogger())

	projects := []*models.Project{{Name: "alpha"}, {Name: "beta"}, {Name: "gamma"}, {Name: "delta"}}
	outcomes, err := runner.AnalyzeAll(context.Background(), projects)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	for i, o := range outcomes {
		assert.Equal(t, projects[i].Name, o.Project)
		if o.Project == "beta" {
			assert.Error(t, o.Err)
		} else {
			assert.NoError(t, o.Err)
		}
	}
	assert.LessOrEqual(t, analyzer.peak.Load(), int32(2))

	entries, err := dlq.NewQueue(store.DB()).List(context.Background(), int64(len("beta")), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dlq.ProjectFailure, entries[0].BranchID)
	assert.Equal(t, "run-beta", entries[0].RunID.String)
}

func TestAnalyzeAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(&fakeAnalyzer{}, newStore(t), 1, testLogger())
	outcomes, err := runner.AnalyzeAll(ctx, []*models.Project{{Name: "alpha"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}

func TestLoadProjects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
projects:
  - name: local
    repository: repos/local
    feed: feeds/local.yaml
  - name: remote
    repository: https://github.com/acme/remote.git
`), 0644))

	projects, err := LoadProjects(path)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, filepath.Join(dir, "repos", "local"), projects[0].Repository)
	assert.Equal(t, filepath.Join(dir, "feeds", "local.yaml"), projects[0].FeedPath)
	assert.Equal(t, "https://github.com/acme/remote.git", projects[1].Repository)
	assert.Empty(t, projects[1].FeedPath)
}

func TestLoadProjectsRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing repository", "projects:\n  - name: a\n"},
		{"missing name", "projects:\n  - repository: /tmp/a\n"},
		{"duplicate", "projects:\n  - {name: a, repository: /a}\n  - {name: a, repository: /b}\n"},
		{"not yaml", "projects: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "projects.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadProjects(path)
			assert.Error(t, err)
		})
	}
}

func TestFeedBuilderFileSource(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "smells.yaml")
	require.NoError(t, os.WriteFile(feedPath, []byte("commits:\n  - sha: abc\n    smells:\n      - {type: LM, instance: Foo#run}\n"), 0644))

	tests := []struct {
		name    string
		backend string
	}{
		{"without cache", "none"},
		{"with bolt cache", "bolt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Feed.Source = "file"
			cfg.Feed.Path = feedPath
			cfg.Cache.Backend = tt.backend
			cfg.Cache.Directory = t.TempDir()

			ctx := context.Background()
			builder, err := NewFeedBuilder(ctx, cfg, testLogger())
			require.NoError(t, err)
			defer builder.Close()

			f, release, err := builder.Open(ctx, &models.Project{Name: "demo"})
			require.NoError(t, err)
			defer release()

			snap, err := f.SnapshotAt(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, snap.Has("LM|Foo#run"))
		})
	}
}

func TestFeedBuilderUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "memcached"
	_, err := NewFeedBuilder(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}
