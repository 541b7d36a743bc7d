package lifecycle

import (
	"fmt"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// linearBranch builds a branch of n commits c0..c(n-1) with global ordinals
// equal to their index; covered lists the covered ordinals.
func linearBranch(id, n int, covered ...int) *models.Branch {
	cov := make(map[int]bool)
	for _, o := range covered {
		cov[o] = true
	}
	b := &models.Branch{ID: id}
	for i := 0; i < n; i++ {
		c := &models.Commit{SHA: fmt.Sprintf("b%dc%d", id, i), Ordinal: i, Covered: cov[i]}
		if i > 0 {
			c.Parents = []string{b.Commits[i-1].SHA}
		}
		b.Commits = append(b.Commits, c)
	}
	return b
}

func smell(typ, instance string) models.SmellInstance {
	return models.SmellInstance{Type: typ, Instance: instance}
}

func categories(events []models.LifecycleEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = fmt.Sprintf("%s:%s@%s", e.Category, e.Smell.Instance, e.CommitSHA)
		if e.Category == models.CategoryLost {
			out[i] = fmt.Sprintf("lost:%s[%d,%d)", e.Smell.Instance, e.Since, e.Until)
		}
	}
	return out
}
