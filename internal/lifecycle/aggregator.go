// Package lifecycle tracks smell instances commit by commit along each
// reconstructed branch.
package lifecycle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/smelltracker/internal/feed"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// EventSink persists the events of one branch as a unit
type EventSink interface {
	SaveLifecycleEvents(ctx context.Context, projectID int64, branchID int, events []models.LifecycleEvent) error
}

// FailureRecorder keeps track of branches whose analysis was skipped
type FailureRecorder interface {
	RecordBranchFailure(ctx context.Context, projectID int64, branchID int, cause error) error
}

// BranchResult summarizes one branch
type BranchResult struct {
	BranchID int
	Events   int
	Err      error
}

// Result summarizes a whole project run
type Result struct {
	Branches   []BranchResult
	Events     int
	Failed     int
	Unresolved []Unresolved
	Duration   time.Duration
}

// Aggregator runs one BranchAnalyzer per branch, in discovery order
type Aggregator struct {
	projectID int64
	feed      feed.Feed
	dups      DuplicationChecker
	sink      EventSink
	failures  FailureRecorder
	logger    *logrus.Logger
}

// NewAggregator creates an aggregator. failures may be nil.
func NewAggregator(projectID int64, f feed.Feed, dups DuplicationChecker, sink EventSink, failures FailureRecorder, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		projectID: projectID,
		feed:      f,
		dups:      dups,
		sink:      sink,
		failures:  failures,
		logger:    logger,
	}
}

// Run analyzes branches in order; commits are all project commits, used by
// the trunk gap handler. A failing branch is logged, recorded and skipped,
// and its events are dropped. Only context cancellation stops the run early.
func (g *Aggregator) Run(ctx context.Context, branches []*models.Branch, commits []*models.Commit) (*Result, error) {
	start := time.Now()
	result := &Result{}
	known := make(map[string]models.Snapshot)

	for _, b := range branches {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, unresolved, err := g.runBranch(ctx, b, commits, known)
		result.Branches = append(result.Branches, BranchResult{BranchID: b.ID, Events: n, Err: err})
		if err != nil {
			result.Failed++
			g.logger.WithError(err).WithFields(logrus.Fields{
				"project_id": g.projectID,
				"branch":     b.ID,
			}).Error("branch analysis failed, skipping branch")
			if g.failures != nil {
				if rerr := g.failures.RecordBranchFailure(ctx, g.projectID, b.ID, err); rerr != nil {
					g.logger.WithError(rerr).Warn("failed to record branch failure")
				}
			}
			continue
		}
		result.Events += n
		result.Unresolved = append(result.Unresolved, unresolved...)
	}

	result.Duration = time.Since(start)
	g.logger.WithFields(logrus.Fields{
		"project_id": g.projectID,
		"branches":   len(branches),
		"failed":     result.Failed,
		"events":     result.Events,
		"unresolved": len(result.Unresolved),
		"duration":   result.Duration,
	}).Info("smell lifecycle analysis complete")
	return result, nil
}

func (g *Aggregator) runBranch(ctx context.Context, b *models.Branch, commits []*models.Commit, known map[string]models.Snapshot) (int, []Unresolved, error) {
	var seed models.Snapshot
	if b.ForkPoint != nil {
		s, ok := known[b.ForkPoint.SHA]
		if !ok {
			g.logger.WithFields(logrus.Fields{
				"branch": b.ID,
				"fork":   b.ForkPoint.ShortSHA(),
			}).Warn("no known smell state at fork point, starting branch empty")
			s = models.Snapshot{}
		}
		seed = s
	}

	var gaps GapHandler
	if b.IsTrunk() {
		gaps = NewTrunkGapHandler(b, commits)
	} else {
		gaps = NewBranchGapHandler(b)
	}

	analyzer := NewBranchAnalyzer(g.projectID, b, g.feed, gaps, g.dups, g.logger)
	events, err := analyzer.Analyze(ctx, seed)
	if err != nil {
		return 0, nil, err
	}
	final, ok := g.mergeSnapshot(ctx, b, known)
	events = append(events, analyzer.NotifyEnd(final, ok)...)

	if g.sink != nil {
		if err := g.sink.SaveLifecycleEvents(ctx, g.projectID, b.ID, events); err != nil {
			return 0, nil, err
		}
	}

	// a branch whose events were not stored must not seed later branches
	for sha, s := range analyzer.States() {
		known[sha] = s
	}
	return len(events), analyzer.Unresolved(), nil
}

// mergeSnapshot returns the smells at b's merge point: from the feed when the
// merge commit was analyzed, else the state the owning branch recorded there.
func (g *Aggregator) mergeSnapshot(ctx context.Context, b *models.Branch, known map[string]models.Snapshot) (models.Snapshot, bool) {
	m := b.MergePoint
	if m == nil {
		return nil, false
	}
	if m.Covered {
		snap, err := g.feed.SnapshotAt(ctx, m.SHA)
		if err == nil {
			return snap, true
		}
		g.logger.WithError(err).WithField("merge", m.ShortSHA()).Warn("merge point snapshot unavailable, using last known state")
	}
	s, ok := known[m.SHA]
	return s, ok
}
