package topology

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/smelltracker/internal/errors"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// graphSource serves a commit graph described as sha -> parents
type graphSource struct {
	head    string
	commits map[string]*models.Commit
}

func newGraph(head string, edges map[string][]string) *graphSource {
	g := &graphSource{head: head, commits: make(map[string]*models.Commit)}
	for sha, parents := range edges {
		g.commits[sha] = &models.Commit{SHA: sha, Parents: parents}
	}
	return g
}

func (g *graphSource) Head(ctx context.Context) (*models.Commit, error) {
	if g.head == "" {
		return nil, nil
	}
	return g.Commit(ctx, g.head)
}

func (g *graphSource) Commit(ctx context.Context, sha string) (*models.Commit, error) {
	c, ok := g.commits[sha]
	if !ok {
		return nil, fmt.Errorf("no commit %s", sha)
	}
	return c, nil
}

type wantBranch struct {
	commits []string
	fork    string
	merge   string
}

func shaOf(c *models.Commit) string {
	if c == nil {
		return ""
	}
	return c.SHA
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name  string
		head  string
		edges map[string][]string
		want  map[int]wantBranch
	}{
		{
			name:  "linear history",
			head:  "C",
			edges: map[string][]string{"A": nil, "B": {"A"}, "C": {"B"}},
			want: map[int]wantBranch{
				0: {commits: []string{"A", "B", "C"}},
			},
		},
		{
			name: "single merge",
			head: "F",
			edges: map[string][]string{
				"A": nil, "B": {"A"}, "C": {"B"},
				"D": {"A"}, "E": {"D"},
				"F": {"C", "E"},
			},
			want: map[int]wantBranch{
				0: {commits: []string{"A", "B", "C", "F"}},
				1: {commits: []string{"D", "E"}, fork: "A", merge: "F"},
			},
		},
		{
			name: "successive merges",
			head: "I",
			edges: map[string][]string{
				"A": nil, "B": {"A"}, "C": {"B"},
				"D": {"A"}, "E": {"D"},
				"F": {"C", "E"},
				"G": {"F"},
				"H": {"F", "G"},
				"I": {"H"},
			},
			want: map[int]wantBranch{
				0: {commits: []string{"A", "B", "C", "F", "H", "I"}},
				1: {commits: []string{"G"}, fork: "F", merge: "H"},
				2: {commits: []string{"D", "E"}, fork: "A", merge: "F"},
			},
		},
		{
			name: "overlapping branches",
			head: "I",
			edges: map[string][]string{
				"A": nil, "B": {"A"}, "C": {"B"},
				"D": {"A"}, "E": {"D"},
				"F": {"D", "E"},
				"G": {"F"},
				"H": {"C", "G"},
				"I": {"H"},
			},
			want: map[int]wantBranch{
				0: {commits: []string{"A", "B", "C", "H", "I"}},
				1: {commits: []string{"D", "F", "G"}, fork: "A", merge: "H"},
				2: {commits: []string{"E"}, fork: "D", merge: "F"},
			},
		},
		{
			name: "parallel branches",
			head: "I",
			edges: map[string][]string{
				"A": nil, "B": {"A"}, "C": {"B"},
				"D": {"A"}, "E": {"A"},
				"F": {"D", "E"},
				"G": {"F"},
				"H": {"C", "G"},
				"I": {"H"},
			},
			want: map[int]wantBranch{
				0: {commits: []string{"A", "B", "C", "H", "I"}},
				1: {commits: []string{"D", "F", "G"}, fork: "A", merge: "H"},
				2: {commits: []string{"E"}, fork: "A", merge: "F"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconstructor(newGraph(tt.head, tt.edges))
			branches, err := r.Reconstruct(context.Background())
			require.NoError(t, err)
			require.Len(t, branches, len(tt.want))
			require.NoError(t, Check(branches))

			for i, b := range branches {
				assert.Equal(t, i, b.ID, "branches are ordered by id")
				want := tt.want[b.ID]
				assert.Equal(t, want.commits, b.SHAs(), "branch %d body", b.ID)
				assert.Equal(t, want.fork, shaOf(b.ForkPoint), "branch %d fork", b.ID)
				assert.Equal(t, want.merge, shaOf(b.MergePoint), "branch %d merge", b.ID)
			}

			total := 0
			for _, b := range branches {
				total += b.Len()
			}
			assert.Equal(t, len(tt.edges), total, "every commit belongs to a branch")
		})
	}
}

func TestReconstructIsDeterministic(t *testing.T) {
	edges := map[string][]string{
		"A": nil, "B": {"A"}, "C": {"B"},
		"D": {"A"}, "E": {"D"},
		"F": {"D", "E"}, "G": {"F"},
		"H": {"C", "G"}, "I": {"H"},
	}
	first, err := NewReconstructor(newGraph("I", edges)).Reconstruct(context.Background())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := NewReconstructor(newGraph("I", edges)).Reconstruct(context.Background())
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].ID, again[j].ID)
			assert.Equal(t, first[j].SHAs(), again[j].SHAs())
			assert.Equal(t, shaOf(first[j].ForkPoint), shaOf(again[j].ForkPoint))
			assert.Equal(t, shaOf(first[j].MergePoint), shaOf(again[j].MergePoint))
		}
	}
}

func TestReconstructEmptyGraph(t *testing.T) {
	branches, err := NewReconstructor(newGraph("", nil)).Reconstruct(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.True(t, branches[0].IsTrunk())
	assert.Empty(t, branches[0].Commits)
	assert.Nil(t, branches[0].ForkPoint)
	assert.Nil(t, branches[0].MergePoint)
}

func TestReconstructAbandonsClaimedStart(t *testing.T) {
	// M merges B, which the trunk walk already claimed
	edges := map[string][]string{
		"A": nil, "B": {"A"}, "C": {"B"},
		"M": {"C", "B"},
	}
	branches, err := NewReconstructor(newGraph("M", edges)).Reconstruct(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, []string{"A", "B", "C", "M"}, branches[0].SHAs())
}

func TestReconstructIntegrityErrors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		edges := map[string][]string{"A": {"C"}, "B": {"A"}, "C": {"B"}}
		_, err := NewReconstructor(newGraph("C", edges)).Reconstruct(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
		assert.True(t, IsIntegrity(err))
	})
	t.Run("missing parent", func(t *testing.T) {
		edges := map[string][]string{"B": {"A"}}
		_, err := NewReconstructor(newGraph("B", edges)).Reconstruct(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
	})
}

func TestCheckDetectsForkInsideBranch(t *testing.T) {
	a := &models.Commit{SHA: "A"}
	b := &models.Commit{SHA: "B", Parents: []string{"A"}}
	err := Check([]*models.Branch{{ID: 0, Commits: []*models.Commit{a, b}, ForkPoint: a}})
	assert.Error(t, err)
}
