package models

import (
	"strings"
	"time"
)

// Project is one analyzed repository
type Project struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	URL        string `json:"url" db:"url"`
	Repository string `json:"repository" db:"-"` // local path or clone URL
	FeedPath   string `json:"feed,omitempty" db:"-"`
}

// Commit is a node of the commit graph. Commits are created once by the git
// provider and shared by pointer; nothing downstream mutates them.
type Commit struct {
	SHA         string    `json:"sha" db:"sha1"`
	Parents     []string  `json:"parents"` // first entry is the mainline parent
	Ordinal     int       `json:"ordinal" db:"ordinal"`
	Author      string    `json:"author" db:"author"`
	AuthorEmail string    `json:"author_email" db:"author_email"`
	Message     string    `json:"message" db:"message"`
	Timestamp   time.Time `json:"timestamp" db:"date"`
	Covered     bool      `json:"covered" db:"in_detector"`
}

// IsRoot reports whether the commit has no parents
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// MergedParent returns the second parent of a merge commit, or "".
func (c *Commit) MergedParent() string {
	if len(c.Parents) < 2 {
		return ""
	}
	return c.Parents[1]
}

// ShortSHA is the 8-character prefix used in log lines
func (c *Commit) ShortSHA() string {
	if len(c.SHA) <= 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// CommitDetails holds diff statistics for one commit
type CommitDetails struct {
	SHA          string       `json:"sha"`
	Additions    int          `json:"additions"`
	Deletions    int          `json:"deletions"`
	FilesChanged int          `json:"files_changed"`
	Renames      []FileRename `json:"renames"`
}

// FileRename is a rename detected by git's similarity index
type FileRename struct {
	CommitSHA  string `json:"commit_sha" db:"commit_sha"`
	OldFile    string `json:"old_file" db:"old_file"`
	NewFile    string `json:"new_file" db:"new_file"`
	Similarity int    `json:"similarity" db:"similarity"`
}

// CommitRecord is the persisted form of a commit, joined with its details
type CommitRecord struct {
	Commit  *Commit
	Details *CommitDetails // nil when details collection is disabled
}

const tagRefPrefix = "refs/tags/"

// Tag is a repository tag resolved to the commit it marks
type Tag struct {
	Name      string    `json:"name" db:"name"`
	CommitSHA string    `json:"commit_sha" db:"commit_sha"`
	Date      time.Time `json:"date" db:"date"`
}

// NewTag builds a tag, accepting either the short name or the full ref
func NewTag(name, sha string, date time.Time) Tag {
	return Tag{Name: strings.TrimPrefix(name, tagRefPrefix), CommitSHA: sha, Date: date}
}
