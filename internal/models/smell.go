package models

import (
	"fmt"
	"sort"
)

// SmellInstance is one detected smell. Instance is the analyzer's stable
// identity for the affected code unit, e.g. "com.acme.Foo#bar(int)".
type SmellInstance struct {
	Type     string `json:"type" yaml:"type" db:"type"`
	Instance string `json:"instance" yaml:"instance" db:"instance"`
	File     string `json:"file,omitempty" yaml:"file,omitempty" db:"file"`
}

// Key identifies the instance across commits
func (s SmellInstance) Key() string {
	return s.Type + "|" + s.Instance
}

func (s SmellInstance) String() string {
	return fmt.Sprintf("%s(%s)", s.Type, s.Instance)
}

// Snapshot is the set of smells present at one commit, keyed by Key().
type Snapshot map[string]SmellInstance

// NewSnapshot builds a snapshot from a list of instances
func NewSnapshot(smells ...SmellInstance) Snapshot {
	s := make(Snapshot, len(smells))
	for _, sm := range smells {
		s[sm.Key()] = sm
	}
	return s
}

func (s Snapshot) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the instances ordered by key, for deterministic iteration
func (s Snapshot) Sorted() []SmellInstance {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]SmellInstance, len(keys))
	for i, k := range keys {
		out[i] = s[k]
	}
	return out
}

// Clone returns an independent copy
func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Category is the kind of a lifecycle event, stored as text
type Category string

const (
	CategoryIntroduction Category = "introduction"
	CategoryPresence     Category = "presence"
	CategoryRefactor     Category = "refactor"
	CategoryLost         Category = "lost"
)

// LifecycleEvent records one transition of a smell instance on a branch.
// Lost events carry an ordinal interval instead of a commit: the smell was
// last seen at Since and known gone at Until.
type LifecycleEvent struct {
	ProjectID int64         `json:"project_id"`
	BranchID  int           `json:"branch_id"`
	Category  Category      `json:"category"`
	Smell     SmellInstance `json:"smell"`
	CommitSHA string        `json:"commit_sha,omitempty"`
	Since     int           `json:"since,omitempty"`
	Until     int           `json:"until,omitempty"`
}

func (e LifecycleEvent) String() string {
	if e.Category == CategoryLost {
		return fmt.Sprintf("%s %s [%d,%d)", e.Category, e.Smell, e.Since, e.Until)
	}
	return fmt.Sprintf("%s %s @%s", e.Category, e.Smell, e.CommitSHA)
}
