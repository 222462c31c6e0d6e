package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// LineCounter counts source lines per language in a working copy.
type LineCounter interface {
	CountLines(ctx context.Context, path string) (domain.LanguageTally, error)
}

// AuthorshipReader reports per-author contributions at the head of a branch.
type AuthorshipReader interface {
	ReadAuthors(ctx context.Context, path, branch string) ([]domain.AuthorContribution, error)
}

// AuthorClassifier maps an author string to a bucket and reports which pattern decided it.
type AuthorClassifier interface {
	ClassifyMatch(author string) (domain.AuthorBucket, int)
}

// TechnologyDetector reports the technologies a working copy uses.
type TechnologyDetector interface {
	DetectTechnologies(ctx context.Context, path string) ([]string, error)
}

// Target identifies a checked-out repository to extract.
type Target struct {
	Name        string
	DisplayName string
	Branch      string
	Path        string
}

// Outcome is the result of extracting one repository. Exactly one of Record
// and Err is set.
type Outcome struct {
	Name   string
	Record *domain.RepositoryRecord
	Err    error
}

// OK reports whether extraction produced a record.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Record != nil
}

// Extractor turns a working copy into a RepositoryRecord.
type Extractor struct {
	counter    LineCounter
	authors    AuthorshipReader
	classifier AuthorClassifier
	detector   TechnologyDetector
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewExtractor creates a new Extractor. timeout bounds each external tool call.
func NewExtractor(counter LineCounter, authors AuthorshipReader, classifier AuthorClassifier, timeout time.Duration, logger *zap.Logger) *Extractor {
	return &Extractor{
		counter:    counter,
		authors:    authors,
		classifier: classifier,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

// WithDetector makes Extract also record the repository's technologies.
func (e *Extractor) WithDetector(d TechnologyDetector) *Extractor {
	e.detector = d
	return e
}

// Extract runs both passes over t. Failures are reported in the outcome as
// ErrExtraction and never abort the caller.
func (e *Extractor) Extract(ctx context.Context, t Target) Outcome {
	logger := e.logger.With(zap.String("repository", t.Name))
	logger.Info("extracting statistics", zap.String("path", t.Path))

	fail := func(stage string, err error) Outcome {
		wrapped := domain.NewError(domain.ErrExtraction, t.Name, fmt.Errorf("%s: %w", stage, err))
		logger.Warn("extraction failed", zap.String("stage", stage), zap.Error(err))
		return Outcome{Name: t.Name, Err: wrapped}
	}

	languages, err := e.countLines(ctx, t.Path)
	if err != nil {
		return fail("line count", err)
	}

	authors, err := e.readAuthors(ctx, t.Path, t.Branch)
	if err != nil {
		return fail("authorship", err)
	}

	record := domain.RepositoryRecord{
		Name:         t.Name,
		DisplayName:  t.DisplayName,
		Branch:       t.Branch,
		Buckets:      make(map[domain.AuthorBucket]domain.Contribution, len(domain.Buckets)),
		Languages:    languages,
		Technologies: e.detectTechnologies(ctx, t.Path, logger),
		AnalyzedAt:   e.now().UTC(),
	}
	for _, author := range authors {
		bucket, pattern := e.classifier.ClassifyMatch(author.Author)
		logger.Debug("classified author",
			zap.String("author", author.Author),
			zap.String("bucket", string(bucket)),
			zap.Int("pattern", pattern),
		)
		record.Totals = record.Totals.Add(author.Contribution)
		record.Buckets[bucket] = record.Buckets[bucket].Add(author.Contribution)
	}

	clampLanguages(record.Languages, record.Totals.Lines, logger)

	logger.Info("extracted statistics",
		zap.Int("lines", record.Totals.Lines),
		zap.Int("commits", record.Totals.Commits),
		zap.Int("files", record.Totals.Files),
		zap.Int("languages", len(record.Languages)),
		zap.Int("technologies", len(record.Technologies)),
	)
	return Outcome{Name: t.Name, Record: &record}
}

func (e *Extractor) countLines(ctx context.Context, path string) (domain.LanguageTally, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	tally, err := e.counter.CountLines(ctx, path)
	if err != nil {
		return nil, err
	}
	if tally == nil {
		tally = domain.LanguageTally{}
	}
	return tally, nil
}

func (e *Extractor) readAuthors(ctx context.Context, path, branch string) ([]domain.AuthorContribution, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.authors.ReadAuthors(ctx, path, branch)
}

// detectTechnologies is best effort; a failure leaves the list empty and
// does not fail the record.
func (e *Extractor) detectTechnologies(ctx context.Context, path string, logger *zap.Logger) []string {
	if e.detector == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	techs, err := e.detector.DetectTechnologies(ctx, path)
	if err != nil {
		logger.Warn("technology detection failed", zap.Error(err))
		return nil
	}
	return techs
}

// clampLanguages caps each language at the repository's total lines and drops
// languages left with nothing. Line counters and git-fame disagree on what a
// line is, so a language can otherwise claim more lines than the repository has.
func clampLanguages(languages domain.LanguageTally, totalLines int, logger *zap.Logger) {
	for lang, lines := range languages {
		if lines > totalLines {
			logger.Info("capping language line count",
				zap.String("language", lang),
				zap.Int("lines", lines),
				zap.Int("total_lines", totalLines),
			)
			lines = totalLines
		}
		if lines <= 0 {
			delete(languages, lang)
			continue
		}
		languages[lang] = lines
	}
}
