package lifecycle

import (
	stderrors "errors"
	"fmt"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// ErrCommitNotFound is returned by Resolve when no covered commit follows prev
var ErrCommitNotFound = stderrors.New("no covered commit found")

// Step is a commit consumed by the analyzer, with its in-branch ordinal.
// BranchOrdinal is -1 for the virtual step standing for a fork point.
type Step struct {
	Commit        *models.Commit
	BranchOrdinal int
}

// GapHandler detects and bridges runs of commits the smell feed skipped.
// Implementations differ only in the ordinal space they search.
type GapHandler interface {
	// Ordinal returns s's position in the handler's ordinal space
	Ordinal(s Step) int
	// HasGap reports whether prev and next are not adjacent
	HasGap(prev, next Step) bool
	// Resolve returns the nearest covered commit strictly after prev
	Resolve(prev Step) (Step, error)
}

// TrunkGapHandler works in the project-wide ordinal space. Trunk commits
// hold the ordinals 0..n-1, so the search stops at the trunk head.
type TrunkGapHandler struct {
	byOrdinal map[int]*models.Commit
	onTrunk   map[string]int
	limit     int
}

// NewTrunkGapHandler indexes all project commits for lookups along trunk
func NewTrunkGapHandler(trunk *models.Branch, commits []*models.Commit) *TrunkGapHandler {
	h := &TrunkGapHandler{
		byOrdinal: make(map[int]*models.Commit, len(commits)),
		onTrunk:   make(map[string]int, trunk.Len()),
		limit:     -1,
	}
	for _, c := range commits {
		h.byOrdinal[c.Ordinal] = c
	}
	for i, c := range trunk.Commits {
		h.onTrunk[c.SHA] = i
		h.byOrdinal[c.Ordinal] = c
	}
	if last := trunk.Last(); last != nil {
		h.limit = last.Ordinal
	}
	return h
}

func (h *TrunkGapHandler) Ordinal(s Step) int {
	return s.Commit.Ordinal
}

func (h *TrunkGapHandler) HasGap(prev, next Step) bool {
	return next.Commit.Ordinal-prev.Commit.Ordinal > 1
}

func (h *TrunkGapHandler) Resolve(prev Step) (Step, error) {
	for o := prev.Commit.Ordinal + 1; o <= h.limit; o++ {
		c, ok := h.byOrdinal[o]
		if !ok || !c.Covered {
			continue
		}
		ord, ok := h.onTrunk[c.SHA]
		if !ok {
			ord = -1
		}
		return Step{Commit: c, BranchOrdinal: ord}, nil
	}
	return Step{}, fmt.Errorf("after ordinal %d: %w", prev.Commit.Ordinal, ErrCommitNotFound)
}

// BranchGapHandler searches only the in-branch ordinals of one branch
type BranchGapHandler struct {
	branch *models.Branch
}

func NewBranchGapHandler(branch *models.Branch) *BranchGapHandler {
	return &BranchGapHandler{branch: branch}
}

func (h *BranchGapHandler) Ordinal(s Step) int {
	return s.BranchOrdinal
}

func (h *BranchGapHandler) HasGap(prev, next Step) bool {
	return next.BranchOrdinal-prev.BranchOrdinal > 1
}

func (h *BranchGapHandler) Resolve(prev Step) (Step, error) {
	for i := prev.BranchOrdinal + 1; i < h.branch.Len(); i++ {
		if c := h.branch.Commits[i]; c.Covered {
			return Step{Commit: c, BranchOrdinal: i}, nil
		}
	}
	return Step{}, fmt.Errorf("branch %d after ordinal %d: %w", h.branch.ID, prev.BranchOrdinal, ErrCommitNotFound)
}
