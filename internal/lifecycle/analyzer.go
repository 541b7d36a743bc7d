package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/smelltracker/internal/feed"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// Unresolved is a smell whose fate at the end of a branch is unknown because
// the branch tail was never analyzed
type Unresolved struct {
	BranchID int
	Smell    models.SmellInstance
	LastSeen string
}

// BranchAnalyzer walks one branch and turns consecutive smell snapshots into
// lifecycle events. Instances are created per branch and discarded after it.
type BranchAnalyzer struct {
	projectID int64
	branch    *models.Branch
	feed      feed.Feed
	gaps      GapHandler
	dups      DuplicationChecker
	logger    *logrus.Entry

	tracker    *tracker
	last       *Step
	states     map[string]models.Snapshot
	unresolved []Unresolved
}

func NewBranchAnalyzer(projectID int64, branch *models.Branch, f feed.Feed, gaps GapHandler, dups DuplicationChecker, logger *logrus.Logger) *BranchAnalyzer {
	return &BranchAnalyzer{
		projectID: projectID,
		branch:    branch,
		feed:      f,
		gaps:      gaps,
		dups:      dups,
		logger: logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"branch":     branch.ID,
		}),
		tracker: newTracker(),
		states:  make(map[string]models.Snapshot),
	}
}

// Analyze walks the branch oldest first. seed is the state at the fork point;
// seeded smells are tracked as present without an Introduced event.
func (a *BranchAnalyzer) Analyze(ctx context.Context, seed models.Snapshot) ([]models.LifecycleEvent, error) {
	var prev *Step
	if a.branch.ForkPoint != nil {
		fork := Step{Commit: a.branch.ForkPoint, BranchOrdinal: -1}
		for _, s := range seed.Sorted() {
			a.tracker.inherit(s, fork)
		}
		prev = &fork
	}

	var events []models.LifecycleEvent
	for i, c := range a.branch.Commits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.Covered {
			a.states[c.SHA] = a.tracker.snapshot()
			continue
		}

		snap, err := a.feed.SnapshotAt(ctx, c.SHA)
		if stderrors.Is(err, feed.ErrNotCovered) {
			a.logger.WithField("sha", c.ShortSHA()).Warn("commit flagged covered but missing from smell feed")
			a.states[c.SHA] = a.tracker.snapshot()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("branch %d: snapshot at %s: %w", a.branch.ID, c.ShortSHA(), err)
		}

		step := Step{Commit: c, BranchOrdinal: i}
		events = append(events, a.advance(prev, step, snap)...)
		prev = &step
		a.last = &step
		a.states[c.SHA] = a.tracker.snapshot()
	}

	a.logger.WithFields(logrus.Fields{
		"commits": a.branch.Len(),
		"events":  len(events),
		"alive":   len(a.tracker.alive()),
	}).Debug("branch walked")
	return events, nil
}

// advance diffs the tracked state against the snapshot at step
func (a *BranchAnalyzer) advance(prev *Step, step Step, snap models.Snapshot) []models.LifecycleEvent {
	var events []models.LifecycleEvent

	var newcomers []models.SmellInstance
	for _, s := range snap.Sorted() {
		if e, ok := a.tracker.get(s.Key()); ok {
			a.tracker.present(e, step)
			events = append(events, a.event(models.CategoryPresence, s, step))
			continue
		}
		newcomers = append(newcomers, s)
	}

	var orphans []models.SmellInstance
	for _, e := range a.tracker.alive() {
		if !snap.Has(e.smell.Key()) {
			orphans = append(orphans, e.smell)
		}
	}

	for _, s := range newcomers {
		if match, ok := a.dups.Match(s, orphans); ok {
			a.tracker.rekey(match, s, step)
			orphans = without(orphans, match)
			events = append(events, a.event(models.CategoryPresence, s, step))
			continue
		}
		a.tracker.introduce(s, step)
		events = append(events, a.event(models.CategoryIntroduction, s, step))
	}

	gap := prev != nil && a.gaps.HasGap(*prev, step)
	for _, s := range orphans {
		e, _ := a.tracker.get(s.Key())
		if !gap {
			a.tracker.end(e, Refactored)
			events = append(events, a.event(models.CategoryRefactor, s, step))
			continue
		}
		until := a.gaps.Ordinal(step)
		if resolved, err := a.gaps.Resolve(*prev); err == nil {
			until = a.gaps.Ordinal(resolved)
		}
		a.tracker.end(e, Lost)
		events = append(events, models.LifecycleEvent{
			ProjectID: a.projectID,
			BranchID:  a.branch.ID,
			Category:  models.CategoryLost,
			Smell:     s,
			Since:     a.gaps.Ordinal(*prev),
			Until:     until,
		})
	}
	return events
}

// NotifyEnd closes the branch against the snapshot of its merge point.
// known is false when that snapshot could not be determined. Smells still
// present at the last analyzed commit but absent from the merge snapshot are
// refactored at the merge commit. When the branch tail was never analyzed the
// remaining smells are reported as unresolved instead.
func (a *BranchAnalyzer) NotifyEnd(final models.Snapshot, known bool) []models.LifecycleEvent {
	if a.branch.IsTrunk() || a.branch.MergePoint == nil {
		return nil
	}
	alive := a.tracker.alive()
	if len(alive) == 0 {
		return nil
	}

	tailUnresolved := !known
	if a.last == nil {
		tailUnresolved = tailUnresolved || a.branch.Len() > 0
	} else if a.last.BranchOrdinal < a.branch.Len()-1 {
		if _, err := a.gaps.Resolve(*a.last); stderrors.Is(err, ErrCommitNotFound) {
			tailUnresolved = true
		}
	}
	if tailUnresolved {
		for _, e := range alive {
			a.unresolved = append(a.unresolved, Unresolved{
				BranchID: a.branch.ID,
				Smell:    e.smell,
				LastSeen: e.lastSeen.Commit.SHA,
			})
		}
		a.logger.WithField("smells", len(alive)).Warn("branch tail not covered by smell feed, final smell state unresolved")
		return nil
	}

	mergeStep := Step{Commit: a.branch.MergePoint, BranchOrdinal: a.branch.Len()}
	var events []models.LifecycleEvent
	for _, e := range alive {
		if final.Has(e.smell.Key()) || a.continuesInto(e.smell, final) {
			continue
		}
		a.tracker.end(e, Refactored)
		events = append(events, a.event(models.CategoryRefactor, e.smell, mergeStep))
	}
	return events
}

func (a *BranchAnalyzer) continuesInto(s models.SmellInstance, final models.Snapshot) bool {
	for _, f := range final.Sorted() {
		if IsDuplicate(a.dups, f, []models.SmellInstance{s}) {
			return true
		}
	}
	return false
}

// States returns the tracked smell set after each commit of the branch,
// covered or not. Later branches seed from these at their fork points.
func (a *BranchAnalyzer) States() map[string]models.Snapshot {
	return a.states
}

// Unresolved lists smells left without a final state by NotifyEnd
func (a *BranchAnalyzer) Unresolved() []Unresolved {
	return a.unresolved
}

func (a *BranchAnalyzer) event(cat models.Category, s models.SmellInstance, at Step) models.LifecycleEvent {
	return models.LifecycleEvent{
		ProjectID: a.projectID,
		BranchID:  a.branch.ID,
		Category:  cat,
		Smell:     s,
		CommitSHA: at.Commit.SHA,
	}
}

func without(list []models.SmellInstance, drop models.SmellInstance) []models.SmellInstance {
	out := list[:0:0]
	for _, s := range list {
		if s.Key() != drop.Key() {
			out = append(out, s)
		}
	}
	return out
}
