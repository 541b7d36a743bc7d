package git

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Clone makes a full clone of url under baseDir/<hash>, reusing an existing
// valid clone. Full history is required, so the clone is never shallow.
func Clone(ctx context.Context, url, baseDir string) (string, error) {
	repoPath := filepath.Join(baseDir, repoHash(url))

	if _, err := os.Stat(repoPath); err == nil {
		if _, err := gogit.PlainOpen(repoPath); err == nil {
			return repoPath, nil
		}
		if err := os.RemoveAll(repoPath); err != nil {
			return "", fmt.Errorf("failed to remove broken clone %s: %w", repoPath, err)
		}
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}

	_, err := gogit.PlainCloneContext(ctx, repoPath, false, &gogit.CloneOptions{
		URL: url,
	})
	if err != nil {
		os.RemoveAll(repoPath)
		return "", fmt.Errorf("git clone %s failed: %w", url, err)
	}
	return repoPath, nil
}

// IsRemote reports whether repository names a URL rather than a local path
func IsRemote(repository string) bool {
	return strings.Contains(repository, "://") || strings.HasPrefix(repository, "git@")
}

func repoHash(url string) string {
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)[:16]
}
