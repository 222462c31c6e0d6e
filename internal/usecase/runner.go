package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// Cloner checks out one branch of a remote repository.
type Cloner interface {
	Clone(ctx context.Context, cloneURL, branch, dest string) error
}

// RepositoryExtractor produces an outcome for one checked-out repository.
type RepositoryExtractor interface {
	Extract(ctx context.Context, t Target) Outcome
}

// CloneError marks an outcome that failed before extraction started.
type CloneError struct {
	Err error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone: %v", e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// Job is one repository to clone and extract. An empty CloneURL means Target.Path
// is already checked out.
type Job struct {
	Target
	CloneURL string
}

// Runner clones and extracts repositories in parallel.
type Runner struct {
	cloner    Cloner
	extractor RepositoryExtractor
	workers   int
	logger    *zap.Logger
}

// NewRunner creates a Runner that processes at most workers repositories at once.
func NewRunner(cloner Cloner, extractor RepositoryExtractor, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		cloner:    cloner,
		extractor: extractor,
		workers:   workers,
		logger:    logger,
	}
}

// ExtractAll returns one outcome per job, in job order. A failing repository
// never cancels the others.
func (r *Runner) ExtractAll(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = r.process(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	r.logger.Info("extraction finished", zap.Int("repositories", len(jobs)), zap.Int("failed", failed))
	return outcomes
}

func (r *Runner) process(ctx context.Context, job Job) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Name: job.Name, Err: domain.NewError(domain.ErrExtraction, job.Name, err)}
	}
	if job.CloneURL != "" {
		if err := r.cloner.Clone(ctx, job.CloneURL, job.Branch, job.Path); err != nil {
			r.logger.Warn("clone failed", zap.String("repository", job.Name), zap.Error(err))
			return Outcome{Name: job.Name, Err: domain.NewError(domain.ErrExtraction, job.Name, &CloneError{Err: err})}
		}
	}
	return r.extractor.Extract(ctx, job.Target)
}
