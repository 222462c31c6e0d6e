package usecase

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator() *Aggregator {
	a := NewAggregator(zap.NewNop())
	a.now = func() time.Time { return fixedNow }
	a.newID = func() string { return "run-1" }
	return a
}

// TestAggregator_Aggregate uses a table-driven approach to test the aggregator.
func TestAggregator_Aggregate(t *testing.T) {
	testCases := []struct {
		name              string
		records           []domain.RepositoryRecord
		expectedTotals    domain.Contribution
		expectedPrimary   domain.Contribution
		expectedLanguages domain.LanguageTally
		expectedRepos     []string
		expectedFailures  []string
	}{
		{
			name: "happy path - two repositories",
			records: []domain.RepositoryRecord{
				record("api", domain.Contribution{Lines: 100, Commits: 10, Files: 4}, domain.Contribution{Lines: 60, Commits: 7, Files: 3},
					domain.LanguageTally{"Python": 100}),
				record("cli", domain.Contribution{Lines: 50, Commits: 5, Files: 2}, domain.Contribution{Lines: 30, Commits: 3, Files: 2},
					domain.LanguageTally{"Python": 30, "Go": 20}),
			},
			expectedTotals:    domain.Contribution{Lines: 150, Commits: 15, Files: 6},
			expectedPrimary:   domain.Contribution{Lines: 90, Commits: 10, Files: 5},
			expectedLanguages: domain.LanguageTally{"Python": 130, "Go": 20},
			expectedRepos:     []string{"api", "cli"},
			expectedFailures:  []string{},
		},
		{
			name:              "empty case - no records",
			records:           nil,
			expectedLanguages: domain.LanguageTally{},
			expectedRepos:     []string{},
			expectedFailures:  []string{},
		},
		{
			name: "inconsistent record is excluded",
			records: []domain.RepositoryRecord{
				record("api", domain.Contribution{Lines: 10, Commits: 1, Files: 1}, domain.Contribution{Lines: 10, Commits: 1, Files: 1}, nil),
				{
					Name:   "broken",
					Totals: domain.Contribution{Lines: 5, Commits: 1, Files: 1},
					Buckets: map[domain.AuthorBucket]domain.Contribution{
						domain.BucketPrimary: {Lines: 50, Commits: 1, Files: 1},
					},
				},
			},
			expectedTotals:    domain.Contribution{Lines: 10, Commits: 1, Files: 1},
			expectedPrimary:   domain.Contribution{Lines: 10, Commits: 1, Files: 1},
			expectedLanguages: domain.LanguageTally{},
			expectedRepos:     []string{"api"},
			expectedFailures:  []string{"broken"},
		},
		{
			name: "duplicate names stay separate rows",
			records: []domain.RepositoryRecord{
				record("api", domain.Contribution{Lines: 1, Commits: 1, Files: 1}, domain.Contribution{}, nil),
				record("api", domain.Contribution{Lines: 2, Commits: 1, Files: 1}, domain.Contribution{}, nil),
			},
			expectedTotals:    domain.Contribution{Lines: 3, Commits: 2, Files: 2},
			expectedLanguages: domain.LanguageTally{},
			expectedRepos:     []string{"api", "api"},
			expectedFailures:  []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := newTestAggregator().Aggregate(tc.records)

			assert.Equal(t, "run-1", u.RunID)
			assert.Equal(t, fixedNow, u.GeneratedAt)
			assert.Equal(t, tc.expectedTotals, u.Totals)
			assert.Equal(t, tc.expectedPrimary, u.Bucket(domain.BucketPrimary))
			assert.Equal(t, tc.expectedLanguages, u.Languages)

			names := make([]string, 0, len(u.Repositories))
			for _, r := range u.Repositories {
				names = append(names, r.Name)
			}
			assert.Equal(t, tc.expectedRepos, names)

			failed := make([]string, 0, len(u.Failures))
			for _, f := range u.Failures {
				failed = append(failed, f.Repository)
				assert.Equal(t, StageValidate, f.Stage)
			}
			assert.Equal(t, tc.expectedFailures, failed)

			assert.NoError(t, u.CheckConsistency())
			for _, b := range domain.Buckets {
				assert.Contains(t, u.Buckets, b)
			}
		})
	}
}

func TestAggregator_MergesTechnologies(t *testing.T) {
	api := record("api", domain.Contribution{Lines: 10, Commits: 1, Files: 1}, domain.Contribution{}, nil)
	api.Technologies = []string{"go", "postgres"}
	web := record("web", domain.Contribution{Lines: 10, Commits: 1, Files: 1}, domain.Contribution{}, nil)
	web.Technologies = []string{"docker", "go"}
	bad := record("bad", domain.Contribution{Lines: 1}, domain.Contribution{Lines: 2}, nil)
	bad.Technologies = []string{"rust"}

	u := newTestAggregator().Aggregate([]domain.RepositoryRecord{api, web, bad})
	assert.Equal(t, []string{"docker", "go", "postgres"}, u.Technologies)
}

func TestAggregator_PrimaryShareRendersAsSixty(t *testing.T) {
	u := newTestAggregator().Aggregate([]domain.RepositoryRecord{
		record("api", domain.Contribution{Lines: 150, Commits: 15, Files: 8}, domain.Contribution{Lines: 90, Commits: 10, Files: 5}, nil),
	})
	assert.Equal(t, "60.0%", FormatPercent(u.Distribution(domain.BucketPrimary).Lines))
}

func TestAggregator_OrderDoesNotChangeTotals(t *testing.T) {
	records := make([]domain.RepositoryRecord, 0, 5)
	for i := 1; i <= 5; i++ {
		records = append(records, record(
			fmt.Sprintf("repo-%d", i),
			domain.Contribution{Lines: i * 100, Commits: i * 3, Files: i},
			domain.Contribution{Lines: i * 40, Commits: i, Files: 1},
			domain.LanguageTally{"Go": i * 50, fmt.Sprintf("Lang%d", i%2): i * 10},
		))
	}
	reversed := make([]domain.RepositoryRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	a := newTestAggregator()
	forward := a.Aggregate(records)
	backward := a.Aggregate(reversed)

	assert.Equal(t, forward.Totals, backward.Totals)
	assert.Equal(t, forward.Buckets, backward.Buckets)
	assert.Equal(t, forward.Languages, backward.Languages)
	assert.Equal(t, "repo-1", forward.Repositories[0].Name)
	assert.Equal(t, "repo-5", backward.Repositories[0].Name)
}

func TestAggregator_AggregateOutcomes(t *testing.T) {
	good := record("api", domain.Contribution{Lines: 10, Commits: 2, Files: 1}, domain.Contribution{Lines: 5, Commits: 1, Files: 1}, nil)
	outcomes := []Outcome{
		{Name: "api", Record: &good},
		{Name: "web", Err: domain.NewError(domain.ErrExtraction, "web", errors.New("cloc timed out"))},
		{Name: "infra", Err: domain.NewError(domain.ErrExtraction, "infra", &CloneError{Err: errors.New("auth failed")})},
		{Name: "docs", Err: fmt.Errorf("failed to read artifact: %w", errors.New("no such file"))},
		{Name: "empty"},
	}

	u := newTestAggregator().AggregateOutcomes(outcomes)

	require.Len(t, u.Repositories, 1)
	assert.Equal(t, good.Totals, u.Totals)
	require.Len(t, u.Failures, 4)
	assert.Equal(t, domain.Failure{Repository: "web", Stage: StageExtract, Reason: "web: extraction error: cloc timed out"}, u.Failures[0])
	assert.Equal(t, StageClone, u.Failures[1].Stage)
	assert.Equal(t, StageLoad, u.Failures[2].Stage)
	assert.Equal(t, "empty", u.Failures[3].Repository)
}
