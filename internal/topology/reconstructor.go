// Package topology partitions a commit graph into branches.
package topology

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/rohankatakam/smelltracker/internal/errors"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// CommitSource is the part of the commit graph provider the reconstructor needs
type CommitSource interface {
	Head(ctx context.Context) (*models.Commit, error)
	Commit(ctx context.Context, sha string) (*models.Commit, error)
}

// Reconstructor rebuilds branches by walking first parents back from HEAD
type Reconstructor struct {
	source CommitSource
	logger *slog.Logger
}

func NewReconstructor(source CommitSource) *Reconstructor {
	return &Reconstructor{
		source: source,
		logger: slog.Default().With("component", "topology"),
	}
}

// task is a pending branch walk
type task struct {
	id    int
	start string
}

// builder is the arena slot of one branch while it is being walked
type builder struct {
	id     int
	body   []*models.Commit // newest first
	fork   *models.Commit
	merge  *models.Commit
	walked bool
}

// Reconstruct partitions every commit reachable from HEAD into branches,
// trunk first. An empty graph yields a single empty trunk.
func (r *Reconstructor) Reconstruct(ctx context.Context) ([]*models.Branch, error) {
	head, err := r.source.Head(ctx)
	if err != nil {
		return nil, err
	}
	return r.ReconstructFrom(ctx, head)
}

// ReconstructFrom runs the walk from an explicit head commit.
//
// Tasks run FIFO and each runs to completion. A walk claims commits along the
// first-parent chain and defers every secondary parent as a new task whose
// branch id is allocated on the spot; the commit holding that parent becomes
// the new branch's merge point. A walk stops at the first commit already
// claimed by another branch (its fork point) or after the root commit. A task
// whose start is already claimed produces no branch.
func (r *Reconstructor) ReconstructFrom(ctx context.Context, head *models.Commit) ([]*models.Branch, error) {
	if head == nil {
		return []*models.Branch{{ID: models.TrunkID}}, nil
	}

	claims := make(map[string]int)
	arena := []*builder{{id: models.TrunkID}}
	queue := []task{{id: models.TrunkID, start: head.SHA}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := queue[0]
		queue = queue[1:]

		if owner, ok := claims[t.start]; ok && owner != t.id {
			r.logger.Debug("abandoning branch task, start already claimed",
				"branch", t.id, "start", short(t.start), "owner", owner)
			continue
		}

		b := arena[t.id]
		current, err := r.lookup(ctx, t.start)
		if err != nil {
			return nil, err
		}
		for {
			if owner, ok := claims[current.SHA]; ok {
				if owner == t.id {
					return nil, errors.IntegrityErrorf("commit graph has a cycle through %s", current.SHA).
						WithContext("branch", t.id)
				}
				b.fork = current
				break
			}

			claims[current.SHA] = t.id
			b.body = append(b.body, current)
			for _, parent := range current.Parents[min(1, len(current.Parents)):] {
				id := len(arena)
				arena = append(arena, &builder{id: id, merge: current})
				queue = append(queue, task{id: id, start: parent})
			}

			if current.IsRoot() {
				break
			}
			current, err = r.lookup(ctx, current.Parents[0])
			if err != nil {
				return nil, err
			}
		}
		b.walked = true
	}

	branches := make([]*models.Branch, 0, len(arena))
	for _, b := range arena {
		if !b.walked {
			continue
		}
		commits := make([]*models.Commit, len(b.body))
		for i, c := range b.body {
			commits[len(b.body)-1-i] = c
		}
		branches = append(branches, &models.Branch{
			ID:         b.id,
			Commits:    commits,
			ForkPoint:  b.fork,
			MergePoint: b.merge,
		})
	}

	r.logger.Info("branch topology reconstructed",
		"head", head.ShortSHA(),
		"branches", len(branches),
		"commits", len(claims),
	)
	return branches, nil
}

func (r *Reconstructor) lookup(ctx context.Context, sha string) (*models.Commit, error) {
	c, err := r.source.Commit(ctx, sha)
	if err != nil {
		return nil, errors.IntegrityError(err, "commit graph references a missing commit "+short(sha))
	}
	if c == nil {
		return nil, errors.IntegrityErrorf("commit graph references a missing commit %s", short(sha))
	}
	return c, nil
}

// Check verifies the partition invariants: each commit owned by exactly one
// branch, and no branch containing its own fork point.
func Check(branches []*models.Branch) error {
	owner := make(map[string]int)
	for _, b := range branches {
		for _, c := range b.Commits {
			if prev, ok := owner[c.SHA]; ok {
				return errors.IntegrityErrorf("commit %s claimed by branches %d and %d", short(c.SHA), prev, b.ID)
			}
			owner[c.SHA] = b.ID
		}
	}
	for _, b := range branches {
		if b.ForkPoint == nil {
			continue
		}
		if owner[b.ForkPoint.SHA] == b.ID {
			return errors.IntegrityErrorf("branch %d contains its own fork point %s", b.ID, short(b.ForkPoint.SHA))
		}
	}
	return nil
}

// IsIntegrity reports whether err came from a malformed graph
func IsIntegrity(err error) bool {
	var e *errors.Error
	return stderrors.As(err, &e) && e.Type == errors.ErrorTypeIntegrity
}

func short(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
