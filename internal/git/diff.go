package git

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// DetailsReader extracts diff statistics and file renames for single commits
// with `git show`. Only renames of files with one of Extensions are kept.
type DetailsReader struct {
	repoPath   string
	similarity int
	Extensions []string
}

// NewDetailsReader creates a reader; similarity is git's -M threshold in percent
func NewDetailsReader(repoPath string, similarity int) *DetailsReader {
	if similarity <= 0 || similarity > 100 {
		similarity = 50
	}
	return &DetailsReader{
		repoPath:   repoPath,
		similarity: similarity,
		Extensions: []string{".java"},
	}
}

// Read runs git show for sha against its first parent
func (dr *DetailsReader) Read(ctx context.Context, sha string) (*models.CommitDetails, error) {
	cmd := exec.CommandContext(ctx, "git", "show",
		"--numstat", "--summary",
		fmt.Sprintf("-M%d%%", dr.similarity),
		"--diff-merges=first-parent",
		"--format=",
		sha,
	)
	cmd.Dir = dr.repoPath

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git show failed for %s: %w (stderr: %s)", sha, err, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("git show failed for %s: %w", sha, err)
	}

	details := ParseShowOutput(sha, string(output))
	details.Renames = dr.filter(details.Renames)
	return details, nil
}

func (dr *DetailsReader) filter(renames []models.FileRename) []models.FileRename {
	if len(dr.Extensions) == 0 {
		return renames
	}
	var kept []models.FileRename
	for _, r := range renames {
		for _, ext := range dr.Extensions {
			if strings.HasSuffix(r.NewFile, ext) || strings.HasSuffix(r.OldFile, ext) {
				kept = append(kept, r)
				break
			}
		}
	}
	return kept
}

var renameLine = regexp.MustCompile(`^\s*rename (.+) \((\d+)%\)$`)

// ParseShowOutput parses the output of `git show --numstat --summary --format=`.
// Binary files count as changed with zero added or deleted lines.
func ParseShowOutput(sha, output string) *models.CommitDetails {
	details := &models.CommitDetails{SHA: sha}
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := renameLine.FindStringSubmatch(line); m != nil {
			oldFile, newFile := expandRenamePath(m[1])
			sim, _ := strconv.Atoi(m[2])
			details.Renames = append(details.Renames, models.FileRename{
				CommitSHA:  sha,
				OldFile:    oldFile,
				NewFile:    newFile,
				Similarity: sim,
			})
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		details.FilesChanged++
		if added, err := strconv.Atoi(fields[0]); err == nil {
			details.Additions += added
		}
		if deleted, err := strconv.Atoi(fields[1]); err == nil {
			details.Deletions += deleted
		}
	}
	return details
}

// expandRenamePath turns "src/{a => b}/F.java" or "a.java => b.java" into
// the old and new paths.
func expandRenamePath(summary string) (string, string) {
	open := strings.Index(summary, "{")
	closing := strings.LastIndex(summary, "}")
	if open >= 0 && closing > open {
		prefix, suffix := summary[:open], summary[closing+1:]
		inner := strings.SplitN(summary[open+1:closing], " => ", 2)
		if len(inner) == 2 {
			return cleanJoin(prefix, inner[0], suffix), cleanJoin(prefix, inner[1], suffix)
		}
	}
	parts := strings.SplitN(summary, " => ", 2)
	if len(parts) != 2 {
		return summary, summary
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// cleanJoin joins the brace-expanded pieces, collapsing the "//" an empty middle leaves.
func cleanJoin(prefix, middle, suffix string) string {
	return path.Clean(prefix + middle + suffix)
}
