package lifecycle

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// signature is the structural shape of a smell instance identity:
// "com.acme.Foo$Inner#run(int)" -> enclosing [com acme Foo Inner], leaf run.
type signature struct {
	enclosing []string
	leaf      string
}

func parseSignature(instance string) signature {
	if i := strings.IndexByte(instance, '('); i >= 0 {
		instance = instance[:i]
	}
	parts := strings.FieldsFunc(instance, func(r rune) bool {
		switch r {
		case '.', '#', '$', ':', '/', ' ':
			return true
		}
		return false
	})
	if len(parts) == 0 {
		return signature{}
	}
	return signature{enclosing: parts[:len(parts)-1], leaf: parts[len(parts)-1]}
}

// overlap is the Jaccard index of two unit-name sets. Two empty sets overlap fully.
func overlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]int, len(a)+len(b))
	for _, s := range a {
		set[s] |= 1
	}
	for _, s := range b {
		set[s] |= 2
	}
	both := 0
	for _, v := range set {
		if v == 3 {
			both++
		}
	}
	return float64(both) / float64(len(set))
}

// contains reports whether every unit of small appears in big
func contains(big, small []string) bool {
	if len(small) == 0 {
		return false
	}
	set := make(map[string]bool, len(big))
	for _, s := range big {
		set[s] = true
	}
	for _, s := range small {
		if !set[s] {
			return false
		}
	}
	return true
}

func equalUnits(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// similarity is 1 - levenshtein/maxLen, in [0,1]
func similarity(s1, s2 string) float64 {
	maxLen := max(utf8.RuneCountInString(s1), utf8.RuneCountInString(s2))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(s1, s2))/float64(maxLen)
}
