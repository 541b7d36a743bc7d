package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/smelltracker/internal/config"
	"github.com/rohankatakam/smelltracker/internal/dlq"
	"github.com/rohankatakam/smelltracker/internal/errors"
	"github.com/rohankatakam/smelltracker/internal/feed"
	"github.com/rohankatakam/smelltracker/internal/git"
	"github.com/rohankatakam/smelltracker/internal/lifecycle"
	"github.com/rohankatakam/smelltracker/internal/models"
	"github.com/rohankatakam/smelltracker/internal/storage"
	"github.com/rohankatakam/smelltracker/internal/topology"
	"github.com/rohankatakam/smelltracker/internal/validation"
)

// FeedOpener returns the smell feed of a project and a function releasing it
type FeedOpener func(ctx context.Context, project *models.Project) (feed.Feed, func(), error)

// Orchestrator runs the analysis pipeline for one project at a time:
// clone → load graph → commit details → topology → lifecycle events
type Orchestrator struct {
	store    storage.Store
	feeds    FeedOpener
	logger   *logrus.Logger
	config   *config.AnalysisConfig
	reposDir string
	workers  int
}

// NewOrchestrator creates a new analysis orchestrator
func NewOrchestrator(
	store storage.Store,
	feeds FeedOpener,
	logger *logrus.Logger,
	cfg *config.AnalysisConfig,
) *Orchestrator {
	homeDir, _ := os.UserHomeDir()
	return &Orchestrator{
		store:    store,
		feeds:    feeds,
		logger:   logger,
		config:   cfg,
		reposDir: filepath.Join(homeDir, ".smelltracker", "repos"),
		workers:  8,
	}
}

// WithReposDir sets where remote repositories are cloned
func (o *Orchestrator) WithReposDir(dir string) *Orchestrator {
	o.reposDir = dir
	return o
}

// Result contains the results of one project analysis
type Result struct {
	ProjectID  int64
	Project    string
	RunID      string
	Commits    int
	Covered    int
	Renames    int
	Tags       int
	Branches   int
	Events     int
	Failed     int
	Unresolved []lifecycle.Unresolved
	Duration   time.Duration
}

// Analyze performs the complete analysis of one project. A malformed commit
// graph aborts the project with a fatal error; failing branches do not.
func (o *Orchestrator) Analyze(ctx context.Context, project *models.Project) (*Result, error) {
	startTime := time.Now()
	result := &Result{Project: project.Name, RunID: uuid.NewString()}
	log := o.logger.WithFields(logrus.Fields{
		"project": project.Name,
		"run_id":  result.RunID,
	})
	log.Info("Starting project analysis")

	// Phase 1: Resolve the working copy
	repoPath := project.Repository
	if git.IsRemote(project.Repository) {
		if project.URL == "" {
			project.URL = project.Repository
		}
		path, err := git.Clone(ctx, project.Repository, o.reposDir)
		if err != nil {
			return result, errors.ExternalError(err, "clone failed")
		}
		repoPath = path
	}
	repo, err := git.Open(repoPath)
	if err != nil {
		return result, err
	}

	projectID, err := o.store.SaveProject(ctx, project)
	if err != nil {
		return result, errors.DatabaseError(err, "failed to save project")
	}
	result.ProjectID = projectID

	// Phase 2: Load the commit graph with feed coverage
	f, release, err := o.feeds(ctx, project)
	if err != nil {
		return result, errors.ExternalError(err, "failed to open smell feed")
	}
	defer release()

	if err := repo.Load(ctx, f); err != nil {
		return result, err
	}
	commits := repo.Commits()
	result.Commits = len(commits)
	for _, c := range commits {
		if c.Covered {
			result.Covered++
		}
	}

	// Phase 3: Commit details, renames and tags
	records, renames, err := o.readDetails(ctx, repoPath, commits)
	if err != nil {
		return result, err
	}
	result.Renames = len(renames)
	if err := o.store.SaveCommits(ctx, projectID, records); err != nil {
		return result, errors.DatabaseError(err, "failed to save commits")
	}
	tags, err := repo.Tags(ctx)
	if err != nil {
		return result, err
	}
	result.Tags = len(tags)
	if err := o.store.SaveTags(ctx, projectID, tags); err != nil {
		return result, errors.DatabaseError(err, "failed to save tags")
	}

	// Phase 4: Branch topology
	branches, err := topology.NewReconstructor(repo).Reconstruct(ctx)
	if err != nil {
		return result, err
	}
	if err := topology.Check(branches); err != nil {
		return result, err
	}
	result.Branches = len(branches)
	if err := o.store.SaveBranches(ctx, projectID, branches); err != nil {
		return result, errors.DatabaseError(err, "failed to save branches")
	}

	// Phase 5: Smell lifecycles
	dups := lifecycle.NewSignatureChecker(o.config.DuplicationThreshold, o.config.NameSimilarity, renames)
	failures := dlq.NewQueue(o.store.DB()).WithRun(result.RunID)
	aggregator := lifecycle.NewAggregator(projectID, f, dups, o.store, failures, o.logger)
	run, err := aggregator.Run(ctx, branches, commits)
	if err != nil {
		return result, err
	}
	result.Events = run.Events
	result.Failed = run.Failed
	result.Unresolved = run.Unresolved

	// Phase 6: Check what was stored
	validator := validation.NewConsistencyValidator(o.store.DB())
	checks, err := validator.ValidateAfterAnalysis(ctx, projectID, validation.Expected{
		Commits: result.Commits,
		Events:  result.Events,
	})
	if err != nil {
		return result, errors.DatabaseError(err, "consistency check failed")
	}
	if !validator.LogResults(checks) {
		log.Warn("Stored rows do not match the analysis, rerun the project")
	}
	result.Duration = time.Since(startTime)

	log.WithFields(logrus.Fields{
		"duration":   result.Duration.String(),
		"commits":    result.Commits,
		"covered":    result.Covered,
		"branches":   result.Branches,
		"events":     result.Events,
		"failed":     result.Failed,
		"unresolved": len(result.Unresolved),
	}).Info("Project analysis completed")

	return result, nil
}

// readDetails collects diff statistics with a bounded worker pool. When
// details are disabled, records carry no details and no renames are known.
func (o *Orchestrator) readDetails(ctx context.Context, repoPath string, commits []*models.Commit) ([]models.CommitRecord, []models.FileRename, error) {
	records := make([]models.CommitRecord, len(commits))
	for i, c := range commits {
		records[i].Commit = c
	}
	if !o.config.CommitDetails || len(commits) == 0 {
		return records, nil, nil
	}

	reader := git.NewDetailsReader(repoPath, o.config.RenameSimilarity)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := range records {
		i := i
		g.Go(func() error {
			details, err := reader.Read(gctx, records[i].Commit.SHA)
			if err != nil {
				return errors.ExternalError(err, fmt.Sprintf("failed to read details of %s", records[i].Commit.ShortSHA()))
			}
			records[i].Details = details
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var renames []models.FileRename
	for _, r := range records {
		renames = append(renames, r.Details.Renames...)
	}
	o.logger.WithFields(logrus.Fields{
		"commits": len(records),
		"renames": len(renames),
	}).Debug("Commit details collected")
	return records, renames, nil
}
