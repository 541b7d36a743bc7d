package models

// TrunkID is the id of the branch containing HEAD
const TrunkID = 0

// Branch is a maximal first-parent run of commits owned by one line of
// development. Commits are chronological; a commit's in-branch ordinal is its
// index in Commits.
type Branch struct {
	ID         int       `json:"id"`
	Commits    []*Commit `json:"commits"`
	ForkPoint  *Commit   `json:"fork_point,omitempty"`  // nil for the trunk and root-born branches
	MergePoint *Commit   `json:"merge_point,omitempty"` // nil for the trunk
}

func (b *Branch) IsTrunk() bool {
	return b.ID == TrunkID
}

// Len returns the number of commits in the branch
func (b *Branch) Len() int {
	return len(b.Commits)
}

// Ordinal returns the in-branch ordinal of sha
func (b *Branch) Ordinal(sha string) (int, bool) {
	for i, c := range b.Commits {
		if c.SHA == sha {
			return i, true
		}
	}
	return -1, false
}

// Last returns the newest commit of the branch, or nil when empty
func (b *Branch) Last() *Commit {
	if len(b.Commits) == 0 {
		return nil
	}
	return b.Commits[len(b.Commits)-1]
}

// SHAs lists the branch's commit ids in order
func (b *Branch) SHAs() []string {
	out := make([]string, len(b.Commits))
	for i, c := range b.Commits {
		out[i] = c.SHA
	}
	return out
}
