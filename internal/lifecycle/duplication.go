package lifecycle

import (
	"path"
	"strings"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// DuplicationChecker correlates a newly seen smell with tracked instances that
// just disappeared, so a moved or renamed code unit keeps its lineage.
type DuplicationChecker interface {
	// Match returns the known instance candidate continues, if any
	Match(candidate models.SmellInstance, known []models.SmellInstance) (models.SmellInstance, bool)
}

// IsDuplicate reports whether candidate continues one of known
func IsDuplicate(c DuplicationChecker, candidate models.SmellInstance, known []models.SmellInstance) bool {
	_, ok := c.Match(candidate, known)
	return ok
}

// SignatureChecker matches on type equality plus one of:
//   - the known instance's file was renamed to the candidate's file, and the
//     identities agree once the renamed unit is substituted;
//   - the leaf unit is unchanged and the enclosing units overlap by at least
//     Overlap (or one set contains the other);
//   - the enclosing units are unchanged and the leaf names are at least
//     NameSimilarity similar.
//
// Matching is heuristic; misses show up as a fresh introduction.
type SignatureChecker struct {
	Overlap        float64
	NameSimilarity float64
	renames        map[string]map[string]bool // old file -> new files
}

// NewSignatureChecker builds a checker over the project's file renames.
// Renames are not scoped to a commit because the rename may happen on a
// commit the feed skipped.
func NewSignatureChecker(overlap, nameSimilarity float64, renames []models.FileRename) *SignatureChecker {
	if overlap <= 0 || overlap > 1 {
		overlap = 0.5
	}
	if nameSimilarity <= 0 || nameSimilarity > 1 {
		nameSimilarity = 0.8
	}
	c := &SignatureChecker{
		Overlap:        overlap,
		NameSimilarity: nameSimilarity,
		renames:        make(map[string]map[string]bool),
	}
	for _, r := range renames {
		if c.renames[r.OldFile] == nil {
			c.renames[r.OldFile] = make(map[string]bool)
		}
		c.renames[r.OldFile][r.NewFile] = true
	}
	return c
}

func (c *SignatureChecker) Match(candidate models.SmellInstance, known []models.SmellInstance) (models.SmellInstance, bool) {
	cs := parseSignature(candidate.Instance)
	if cs.leaf == "" {
		return models.SmellInstance{}, false
	}
	for _, k := range known {
		if k.Type != candidate.Type || k.Key() == candidate.Key() {
			continue
		}
		if c.renamed(k, candidate) || c.similar(parseSignature(k.Instance), cs) {
			return k, true
		}
	}
	return models.SmellInstance{}, false
}

func (c *SignatureChecker) renamed(known, candidate models.SmellInstance) bool {
	if known.File == "" || candidate.File == "" || !c.renames[known.File][candidate.File] {
		return false
	}
	oldUnit, newUnit := unitName(known.File), unitName(candidate.File)
	ks := parseSignature(known.Instance)
	cs := parseSignature(candidate.Instance)
	return equalUnits(tailFrom(ks.enclosing, ks.leaf, oldUnit, newUnit), tailFrom(cs.enclosing, cs.leaf, newUnit, newUnit))
}

func (c *SignatureChecker) similar(ks, cs signature) bool {
	if ks.leaf == cs.leaf {
		return overlap(ks.enclosing, cs.enclosing) >= c.Overlap ||
			contains(ks.enclosing, cs.enclosing) ||
			contains(cs.enclosing, ks.enclosing)
	}
	return equalUnits(ks.enclosing, cs.enclosing) && similarity(ks.leaf, cs.leaf) >= c.NameSimilarity
}

// tailFrom returns the units from the file's top-level unit onward, with
// that unit renamed to newUnit. Package segments are dropped since a rename
// may also move the file.
func tailFrom(enclosing []string, leaf, unit, newUnit string) []string {
	units := append(append([]string(nil), enclosing...), leaf)
	for i, u := range units {
		if u == unit {
			out := append([]string{newUnit}, units[i+1:]...)
			return out
		}
	}
	return []string{leaf}
}

func unitName(file string) string {
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}
