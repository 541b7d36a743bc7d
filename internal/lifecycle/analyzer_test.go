package lifecycle

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/smelltracker/internal/feed"
	"github.com/rohankatakam/smelltracker/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newAnalyzer(b *models.Branch, f feed.Feed, gaps GapHandler) *BranchAnalyzer {
	return NewBranchAnalyzer(7, b, f, gaps, NewSignatureChecker(0.5, 0.8, nil), quietLogger())
}

func TestAnalyzeIntroducePresentRefactor(t *testing.T) {
	b := linearBranch(0, 3, 0, 1, 2)
	f := feed.NewMemory()
	f.Set("b0c0", smell("LIC", "a.Foo"))
	f.Set("b0c1", smell("LIC", "a.Foo"), smell("BLOB", "a.God"))
	f.Set("b0c2", smell("BLOB", "a.God"))

	a := newAnalyzer(b, f, NewTrunkGapHandler(b, b.Commits))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"introduction:a.Foo@b0c0",
		"introduction:a.God@b0c1",
		"presence:a.Foo@b0c1",
		"presence:a.God@b0c2",
		"refactor:a.Foo@b0c2",
	}, sortedWithinCommit(events))

	for _, e := range events {
		assert.Equal(t, int64(7), e.ProjectID)
		assert.Equal(t, 0, e.BranchID)
	}
	assert.Nil(t, a.NotifyEnd(nil, false), "trunk is never closed out")
}

// sortedWithinCommit keeps commit order but sorts events of one commit, so
// assertions do not depend on the order of categories inside a commit.
func sortedWithinCommit(events []models.LifecycleEvent) []string {
	out := categories(events)
	start := 0
	for i := 1; i <= len(events); i++ {
		if i == len(events) || events[i].CommitSHA != events[start].CommitSHA {
			sub := out[start:i]
			for x := 1; x < len(sub); x++ {
				for y := x; y > 0 && sub[y] < sub[y-1]; y-- {
					sub[y], sub[y-1] = sub[y-1], sub[y]
				}
			}
			start = i
		}
	}
	return out
}

func TestAnalyzeGapYieldsLostInterval(t *testing.T) {
	b := linearBranch(3, 5, 0, 1, 4)
	f := feed.NewMemory()
	f.Set("b3c0")
	f.Set("b3c1", smell("LM", "a.Foo#run"))
	f.Set("b3c4")

	a := newAnalyzer(b, f, NewBranchGapHandler(b))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.CategoryIntroduction, events[0].Category)
	assert.Equal(t, models.CategoryLost, events[1].Category)
	assert.Equal(t, 1, events[1].Since)
	assert.Equal(t, 4, events[1].Until)
	assert.Empty(t, events[1].CommitSHA)
}

func TestAnalyzeGapOnTrunkUsesGlobalOrdinals(t *testing.T) {
	b := linearBranch(0, 5, 0, 1, 4)
	f := feed.NewMemory()
	f.Set("b0c0")
	f.Set("b0c1", smell("LM", "a.Foo#run"))
	f.Set("b0c4")

	a := newAnalyzer(b, f, NewTrunkGapHandler(b, b.Commits))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"introduction:a.Foo#run@b0c1", "lost:a.Foo#run[1,4)"}, categories(events))
}

func TestAnalyzePersistsAcrossGap(t *testing.T) {
	b := linearBranch(0, 4, 0, 3)
	f := feed.NewMemory()
	f.Set("b0c0", smell("LM", "a.Foo#run"))
	f.Set("b0c3", smell("LM", "a.Foo#run"))

	a := newAnalyzer(b, f, NewTrunkGapHandler(b, b.Commits))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"introduction:a.Foo#run@b0c0", "presence:a.Foo#run@b0c3"}, categories(events))
}

func TestAnalyzeSameSnapshotTwiceIntroducesOnce(t *testing.T) {
	b := linearBranch(0, 2, 0, 1)
	smells := []models.SmellInstance{smell("LIC", "a.Foo$X"), smell("LM", "a.Foo#run"), smell("LM", "a.Foo#runAll")}
	f := feed.NewMemory()
	f.Set("b0c0", smells...)
	f.Set("b0c1", smells...)

	a := newAnalyzer(b, f, NewTrunkGapHandler(b, b.Commits))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)

	introduced := make(map[string]int)
	for _, e := range events {
		if e.Category == models.CategoryIntroduction {
			introduced[e.Smell.Key()]++
		}
	}
	assert.Len(t, introduced, 3)
	for key, n := range introduced {
		assert.Equal(t, 1, n, key)
	}
}

func TestAnalyzeMovedUnitContinuesLineage(t *testing.T) {
	b := linearBranch(0, 2, 0, 1)
	f := feed.NewMemory()
	f.Set("b0c0", smell("LM", "com.acme.Foo#run"))
	f.Set("b0c1", smell("LM", "com.acme.util.Foo#run"))

	a := newAnalyzer(b, f, NewTrunkGapHandler(b, b.Commits))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"introduction:com.acme.Foo#run@b0c0",
		"presence:com.acme.util.Foo#run@b0c1",
	}, categories(events))
}

func TestAnalyzeSeededBranch(t *testing.T) {
	fork := &models.Commit{SHA: "fork", Covered: true}
	merge := &models.Commit{SHA: "merge", Covered: true}
	b := linearBranch(1, 2, 0, 1)
	b.ForkPoint = fork
	b.MergePoint = merge

	f := feed.NewMemory()
	f.Set("b1c0", smell("BLOB", "a.God"), smell("LM", "a.Foo#run"))
	f.Set("b1c1", smell("BLOB", "a.God"), smell("LM", "a.Foo#run"), smell("LIC", "a.Bar$X"))

	seed := models.NewSnapshot(smell("BLOB", "a.God"), smell("SAK", "a.Old"))
	a := newAnalyzer(b, f, NewBranchGapHandler(b))
	events, err := a.Analyze(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"introduction:a.Foo#run@b1c0",
		"presence:a.God@b1c0",
		"refactor:a.Old@b1c0",
		"introduction:a.Bar$X@b1c1",
		"presence:a.Foo#run@b1c1",
		"presence:a.God@b1c1",
	}, sortedWithinCommit(events))

	// God survives the merge; Foo#run and Bar$X do not
	final := models.NewSnapshot(smell("BLOB", "a.God"))
	end := a.NotifyEnd(final, true)
	assert.Equal(t, []string{"refactor:a.Bar$X@merge", "refactor:a.Foo#run@merge"}, categories(end))

	assert.Len(t, a.States(), 2)
	assert.True(t, a.States()["b1c1"].Has("LIC|a.Bar$X"))
}

func TestAnalyzeSeededBranchWithLeadingGap(t *testing.T) {
	b := linearBranch(1, 3, 2)
	b.ForkPoint = &models.Commit{SHA: "fork"}
	b.MergePoint = &models.Commit{SHA: "merge"}
	f := feed.NewMemory()
	f.Set("b1c2")

	a := newAnalyzer(b, f, NewBranchGapHandler(b))
	events, err := a.Analyze(context.Background(), models.NewSnapshot(smell("LM", "a.Foo#run")))
	require.NoError(t, err)
	assert.Equal(t, []string{"lost:a.Foo#run[-1,2)"}, categories(events))
}

func TestNotifyEndUnresolvedTail(t *testing.T) {
	b := linearBranch(2, 3, 0)
	b.ForkPoint = &models.Commit{SHA: "fork"}
	b.MergePoint = &models.Commit{SHA: "merge"}
	f := feed.NewMemory()
	f.Set("b2c0", smell("LM", "a.Foo#run"))

	a := newAnalyzer(b, f, NewBranchGapHandler(b))
	_, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)

	end := a.NotifyEnd(models.Snapshot{}, true)
	assert.Empty(t, end)
	require.Len(t, a.Unresolved(), 1)
	assert.Equal(t, "b2c0", a.Unresolved()[0].LastSeen)
	assert.Equal(t, 2, a.Unresolved()[0].BranchID)
}

func TestNotifyEndUnknownMergeSnapshot(t *testing.T) {
	b := linearBranch(1, 1, 0)
	b.MergePoint = &models.Commit{SHA: "merge"}
	f := feed.NewMemory()
	f.Set("b1c0", smell("LM", "a.Foo#run"))

	a := newAnalyzer(b, f, NewBranchGapHandler(b))
	_, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, a.NotifyEnd(nil, false))
	assert.Len(t, a.Unresolved(), 1)
}

func TestAnalyzeReintroductionAfterRefactor(t *testing.T) {
	b := linearBranch(0, 3, 0, 1, 2)
	f := feed.NewMemory()
	f.Set("b0c0", smell("LM", "a.Foo#run"))
	f.Set("b0c1")
	f.Set("b0c2", smell("LM", "a.Foo#run"))

	a := newAnalyzer(b, f, NewTrunkGapHandler(b, b.Commits))
	events, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"introduction:a.Foo#run@b0c0",
		"refactor:a.Foo#run@b0c1",
		"introduction:a.Foo#run@b0c2",
	}, categories(events))
}
