package git

import (
	"container/heap"

	"github.com/rohankatakam/smelltracker/internal/errors"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// assignOrdinals numbers the commit graph. The first-parent chain from the
// root to head gets 0..n-1, so trunk ordinals are contiguous. Every other
// commit follows in topological order (parents first), ties broken by author
// time then sha. Returns the commits sorted by ordinal.
func assignOrdinals(head *models.Commit, commits map[string]*models.Commit) ([]*models.Commit, error) {
	if head == nil {
		return nil, nil
	}

	var chain []*models.Commit
	onChain := make(map[string]bool)
	for c := head; c != nil; {
		if onChain[c.SHA] {
			return nil, errors.IntegrityErrorf("first-parent chain loops at %s", c.SHA)
		}
		onChain[c.SHA] = true
		chain = append(chain, c)
		if c.IsRoot() {
			break
		}
		next, ok := commits[c.Parents[0]]
		if !ok {
			return nil, errors.IntegrityErrorf("parent %s of %s is missing", c.Parents[0], c.SHA)
		}
		c = next
	}

	ordered := make([]*models.Commit, 0, len(commits))
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].Ordinal = len(ordered)
		ordered = append(ordered, chain[i])
	}

	// Kahn's algorithm over the off-chain commits
	pending := make(map[string]int)
	children := make(map[string][]*models.Commit)
	for sha, c := range commits {
		if onChain[sha] {
			continue
		}
		n := 0
		for _, p := range c.Parents {
			if _, ok := commits[p]; !ok {
				return nil, errors.IntegrityErrorf("parent %s of %s is missing", p, sha)
			}
			if !onChain[p] {
				n++
				children[p] = append(children[p], c)
			}
		}
		pending[sha] = n
	}

	ready := &commitHeap{}
	for sha, n := range pending {
		if n == 0 {
			heap.Push(ready, commits[sha])
		}
	}
	for ready.Len() > 0 {
		c := heap.Pop(ready).(*models.Commit)
		c.Ordinal = len(ordered)
		ordered = append(ordered, c)
		for _, child := range children[c.SHA] {
			pending[child.SHA]--
			if pending[child.SHA] == 0 {
				heap.Push(ready, child)
			}
		}
	}

	if len(ordered) != len(commits) {
		return nil, errors.IntegrityErrorf("commit graph has a cycle (%d of %d commits ordered)", len(ordered), len(commits))
	}
	return ordered, nil
}

type commitHeap []*models.Commit

func (h commitHeap) Len() int { return len(h) }
func (h commitHeap) Less(i, j int) bool {
	if !h[i].Timestamp.Equal(h[j].Timestamp) {
		return h[i].Timestamp.Before(h[j].Timestamp)
	}
	return h[i].SHA < h[j].SHA
}
func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *commitHeap) Push(x any)   { *h = append(*h, x.(*models.Commit)) }
func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
