package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/rohankatakam/smelltracker/internal/errors"
	"github.com/rohankatakam/smelltracker/internal/models"
)

// ErrCommitNotFound is returned when a commit is not reachable from HEAD
var ErrCommitNotFound = stderrors.New("commit not found")

// Coverage tells the provider which commits the smell feed analyzed
type Coverage interface {
	CoveredSHAs(ctx context.Context) (map[string]bool, error)
}

// Repository is the commit graph of one project, read through go-git.
// Load must be called before Head, Commit or Commits.
type Repository struct {
	repo    *gogit.Repository
	path    string
	head    *models.Commit
	commits map[string]*models.Commit
	ordered []*models.Commit
	loaded  bool
	logger  *slog.Logger
}

// Open opens an on-disk repository
func Open(path string) (*Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "failed to open repository %s", path)
	}
	return New(repo, path), nil
}

// New wraps an already opened go-git repository (in-memory ones included)
func New(repo *gogit.Repository, path string) *Repository {
	return &Repository{
		repo:    repo,
		path:    path,
		commits: make(map[string]*models.Commit),
		logger:  slog.Default().With("component", "git"),
	}
}

// Path returns the working tree path, empty for in-memory repositories
func (r *Repository) Path() string {
	return r.path
}

// Load reads every commit reachable from HEAD, assigns global ordinals and
// marks the commits listed by coverage. A nil coverage marks every commit as
// covered. A repository without HEAD loads as an empty graph.
func (r *Repository) Load(ctx context.Context, coverage Coverage) error {
	ref, err := r.repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		r.logger.Warn("repository has no HEAD, treating as empty", "path", r.path)
		r.loaded = true
		return nil
	}
	if err != nil {
		return errors.ExternalError(err, "failed to resolve HEAD")
	}

	if err := r.walk(ctx, ref.Hash()); err != nil {
		return err
	}
	r.head = r.commits[ref.Hash().String()]

	ordered, err := assignOrdinals(r.head, r.commits)
	if err != nil {
		return err
	}
	r.ordered = ordered

	if coverage != nil {
		covered, err := coverage.CoveredSHAs(ctx)
		if err != nil {
			return errors.ExternalError(err, "failed to read smell feed coverage")
		}
		for sha, c := range r.commits {
			c.Covered = covered[sha]
		}
	} else {
		for _, c := range r.commits {
			c.Covered = true
		}
	}

	r.loaded = true
	r.logger.Info("commit graph loaded",
		"path", r.path,
		"commits", len(r.commits),
		"head", r.head.ShortSHA(),
	)
	return nil
}

// walk visits all ancestors of start with an explicit stack
func (r *Repository) walk(ctx context.Context, start plumbing.Hash) error {
	stack := []plumbing.Hash{start}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := r.commits[h.String()]; seen {
			continue
		}

		obj, err := r.repo.CommitObject(h)
		if err != nil {
			return errors.IntegrityError(err, fmt.Sprintf("commit %s is referenced but cannot be read", h))
		}
		c := toModel(obj)
		r.commits[c.SHA] = c
		for _, p := range obj.ParentHashes {
			if _, seen := r.commits[p.String()]; !seen {
				stack = append(stack, p)
			}
		}
	}
	return nil
}

func toModel(obj *object.Commit) *models.Commit {
	parents := make([]string, len(obj.ParentHashes))
	for i, p := range obj.ParentHashes {
		parents[i] = p.String()
	}
	return &models.Commit{
		SHA:         obj.Hash.String(),
		Parents:     parents,
		Author:      obj.Author.Name,
		AuthorEmail: strings.ToLower(obj.Author.Email),
		Message:     strings.TrimSpace(obj.Message),
		Timestamp:   obj.Author.When,
	}
}

// Tags returns the repository tags that point at commits, oldest first.
// Annotated tags are peeled to their commit; tags on trees or blobs are skipped.
func (r *Repository) Tags(ctx context.Context) ([]models.Tag, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, errors.ExternalError(err, "failed to list tags")
	}
	defer iter.Close()

	var tags []models.Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		commit, err := r.tagCommit(ref.Hash())
		if err != nil {
			r.logger.Debug("skipping tag without commit", "tag", ref.Name().Short(), "error", err)
			return nil
		}
		tags = append(tags, models.NewTag(ref.Name().String(), commit.Hash.String(), commit.Author.When))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool {
		if !tags[i].Date.Equal(tags[j].Date) {
			return tags[i].Date.Before(tags[j].Date)
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

func (r *Repository) tagCommit(h plumbing.Hash) (*object.Commit, error) {
	tag, err := r.repo.TagObject(h)
	if err == nil {
		return tag.Commit()
	}
	if !stderrors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, err
	}
	return r.repo.CommitObject(h)
}

// Head returns the HEAD commit, or nil for an empty repository
func (r *Repository) Head(ctx context.Context) (*models.Commit, error) {
	if !r.loaded {
		return nil, errors.InternalErrorf("repository %s not loaded", r.path)
	}
	return r.head, nil
}

// Commit looks up a loaded commit by sha
func (r *Repository) Commit(ctx context.Context, sha string) (*models.Commit, error) {
	if c, ok := r.commits[sha]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%s: %w", sha, ErrCommitNotFound)
}

// Commits returns every reachable commit in global ordinal order
func (r *Repository) Commits() []*models.Commit {
	return r.ordered
}
