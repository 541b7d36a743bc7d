package ingestion

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/smelltracker/internal/dlq"
	"github.com/rohankatakam/smelltracker/internal/git"
	"github.com/rohankatakam/smelltracker/internal/models"
	"github.com/rohankatakam/smelltracker/internal/storage"
)

var isRemote = git.IsRemote

// Analyzer is the per-project pipeline the runner fans out to
type Analyzer interface {
	Analyze(ctx context.Context, project *models.Project) (*Result, error)
}

// Outcome is the result of one project in a multi-project run
type Outcome struct {
	Project string
	Result  *Result
	Err     error
}

// Runner analyzes many projects with bounded concurrency. A failing
// project is logged and dead-lettered; its siblings keep running.
type Runner struct {
	analyzer    Analyzer
	store       storage.Store
	concurrency int
	logger      *logrus.Logger
}

func NewRunner(analyzer Analyzer, store storage.Store, concurrency int, logger *logrus.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{analyzer: analyzer, store: store, concurrency: concurrency, logger: logger}
}

// AnalyzeAll returns one outcome per project, in input order. The error is
// non-nil only when ctx was cancelled.
func (r *Runner) AnalyzeAll(ctx context.Context, projects []*models.Project) ([]Outcome, error) {
	outcomes := make([]Outcome, len(projects))
	var mu sync.Mutex
	failed := 0

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = Outcome{Project: p.Name, Err: ctx.Err()}
				return nil
			}
			result, err := r.analyzer.Analyze(ctx, p)
			outcomes[i] = Outcome{Project: p.Name, Result: result, Err: err}
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				r.recordFailure(ctx, p, result, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.WithFields(logrus.Fields{
		"projects": len(projects),
		"failed":   failed,
	}).Info("Batch analysis completed")
	return outcomes, ctx.Err()
}

func (r *Runner) recordFailure(ctx context.Context, p *models.Project, result *Result, err error) {
	log := r.logger.WithField("project", p.Name)
	log.WithError(err).Error("Project analysis failed")

	if ctx.Err() != nil || result == nil || result.ProjectID == 0 {
		return
	}
	queue := dlq.NewQueue(r.store.DB()).WithRun(result.RunID)
	if qerr := queue.RecordBranchFailure(ctx, result.ProjectID, dlq.ProjectFailure, err); qerr != nil {
		log.WithError(qerr).Warn("Failed to record project failure")
	}
}
