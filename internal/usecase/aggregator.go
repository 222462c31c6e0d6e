// Package usecase contains the business logic of the application.
package usecase

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// Failure stages recorded in UnifiedStatistics.Failures.
const (
	StageClone    = "clone"
	StageExtract  = "extract"
	StageLoad     = "load"
	StageValidate = "validate"
)

// Aggregator is the use case for folding repository records into unified statistics.
type Aggregator struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Aggregate sums records into UnifiedStatistics, keeping the input order.
// Records that fail validation are excluded and listed in Failures; they
// never abort the aggregation.
func (a *Aggregator) Aggregate(records []domain.RepositoryRecord) domain.UnifiedStatistics {
	outcomes := make([]Outcome, len(records))
	for i := range records {
		outcomes[i] = Outcome{Name: records[i].Name, Record: &records[i]}
	}
	return a.AggregateOutcomes(outcomes)
}

// AggregateOutcomes is Aggregate over extraction outcomes. Failed outcomes are
// carried into Failures with the stage they failed at.
func (a *Aggregator) AggregateOutcomes(outcomes []Outcome) domain.UnifiedStatistics {
	a.logger.Debug("starting aggregation", zap.Int("inputs", len(outcomes)))

	u := domain.UnifiedStatistics{
		RunID:        a.newID(),
		GeneratedAt:  a.now().UTC(),
		Buckets:      make(map[domain.AuthorBucket]domain.Contribution, len(domain.Buckets)),
		Repositories: make([]domain.RepositoryRecord, 0, len(outcomes)),
		Languages:    domain.LanguageTally{},
		Failures:     []domain.Failure{},
	}
	for _, b := range domain.Buckets {
		u.Buckets[b] = domain.Contribution{}
	}

	for _, outcome := range outcomes {
		if !outcome.OK() {
			err := outcome.Err
			if err == nil {
				err = errors.New("no record produced")
			}
			u.Failures = append(u.Failures, domain.Failure{
				Repository: outcome.Name,
				Stage:      stageOf(err),
				Reason:     err.Error(),
			})
			continue
		}

		record := *outcome.Record
		if err := record.Validate(); err != nil {
			a.logger.Warn("excluding inconsistent record", zap.String("repository", record.Name), zap.Error(err))
			u.Failures = append(u.Failures, domain.Failure{
				Repository: record.Name,
				Stage:      StageValidate,
				Reason:     err.Error(),
			})
			continue
		}

		u.Totals = u.Totals.Add(record.Totals)
		for bucket, c := range record.Buckets {
			u.Buckets[bucket] = u.Buckets[bucket].Add(c)
		}
		u.Languages = u.Languages.Merge(record.Languages)
		u.Technologies = domain.MergeTechnologies(u.Technologies, record.Technologies)
		u.Repositories = append(u.Repositories, record)
	}

	a.logger.Info("aggregation complete",
		zap.String("run_id", u.RunID),
		zap.Int("repositories", u.ReposProcessed()),
		zap.Int("failures", len(u.Failures)),
		zap.Int("lines", u.Totals.Lines),
		zap.Int("commits", u.Totals.Commits),
	)
	return u
}

// stageOf names the pipeline stage an outcome error came from.
func stageOf(err error) string {
	var cloneErr *CloneError
	switch {
	case errors.As(err, &cloneErr):
		return StageClone
	case errors.Is(err, domain.ErrExtraction):
		return StageExtract
	case errors.Is(err, domain.ErrConsistency):
		return StageValidate
	default:
		return StageLoad
	}
}
