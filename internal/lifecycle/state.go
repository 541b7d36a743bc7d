package lifecycle

import (
	"sort"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// State is the lifecycle state of one smell instance on one branch
type State int

const (
	Unseen State = iota
	Introduced
	Present
	Refactored
	Lost
)

func (s State) String() string {
	switch s {
	case Introduced:
		return "introduced"
	case Present:
		return "present"
	case Refactored:
		return "refactored"
	case Lost:
		return "lost"
	default:
		return "unseen"
	}
}

// alive reports whether the instance is currently tracked as present
func (s State) alive() bool {
	return s == Introduced || s == Present
}

type entry struct {
	smell    models.SmellInstance
	state    State
	lastSeen Step
}

// tracker holds per-instance state for a single branch walk
type tracker struct {
	entries map[string]*entry
}

func newTracker() *tracker {
	return &tracker{entries: make(map[string]*entry)}
}

// inherit marks s present without an event (seeded from a fork point)
func (t *tracker) inherit(s models.SmellInstance, at Step) {
	t.entries[s.Key()] = &entry{smell: s, state: Present, lastSeen: at}
}

func (t *tracker) introduce(s models.SmellInstance, at Step) {
	t.entries[s.Key()] = &entry{smell: s, state: Introduced, lastSeen: at}
}

func (t *tracker) present(e *entry, at Step) {
	e.state = Present
	e.lastSeen = at
}

// rekey moves the lineage of old onto s
func (t *tracker) rekey(old models.SmellInstance, s models.SmellInstance, at Step) {
	e, ok := t.entries[old.Key()]
	if !ok {
		e = &entry{}
	}
	delete(t.entries, old.Key())
	e.smell = s
	e.state = Present
	e.lastSeen = at
	t.entries[s.Key()] = e
}

func (t *tracker) end(e *entry, state State) {
	e.state = state
}

func (t *tracker) get(key string) (*entry, bool) {
	e, ok := t.entries[key]
	if !ok || !e.state.alive() {
		return nil, false
	}
	return e, true
}

// alive lists the present entries sorted by key
func (t *tracker) alive() []*entry {
	var out []*entry
	for _, e := range t.entries {
		if e.state.alive() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].smell.Key() < out[j].smell.Key() })
	return out
}

// snapshot returns the set of smells currently alive
func (t *tracker) snapshot() models.Snapshot {
	s := models.Snapshot{}
	for k, e := range t.entries {
		if e.state.alive() {
			s[k] = e.smell
		}
	}
	return s
}
