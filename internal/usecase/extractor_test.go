package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/classifier"
	"github.com/naka-gawa/profile-stats/internal/domain"
)

func newTestClassifier(t *testing.T) *classifier.Classifier {
	t.Helper()
	c, err := classifier.New([]string{"jane"}, []string{`\[bot\]$`, "dependabot"})
	require.NoError(t, err)
	return c
}

func TestExtractor_Extract(t *testing.T) {
	target := Target{Name: "api", DisplayName: "API", Branch: "main", Path: "/work/api"}
	errTool := errors.New("exit status 2")

	testCases := []struct {
		name            string
		languages       domain.LanguageTally
		countErr        error
		authors         []domain.AuthorContribution
		authorsErr      error
		skipAuthors     bool
		expectedRecord  *domain.RepositoryRecord
		expectErr       bool
		expectedInError string
	}{
		{
			name:      "happy path - authors land in their buckets",
			languages: domain.LanguageTally{"Go": 120, "Python": 30},
			authors: []domain.AuthorContribution{
				{Author: "Jane Doe", Contribution: domain.Contribution{Lines: 90, Commits: 10, Files: 5}},
				{Author: "ci-bot[bot]", Contribution: domain.Contribution{Lines: 40, Commits: 3, Files: 2}},
				{Author: "Someone Else", Contribution: domain.Contribution{Lines: 20, Commits: 2, Files: 1}},
			},
			expectedRecord: &domain.RepositoryRecord{
				Name:        "api",
				DisplayName: "API",
				Branch:      "main",
				Totals:      domain.Contribution{Lines: 150, Commits: 15, Files: 8},
				Buckets: map[domain.AuthorBucket]domain.Contribution{
					domain.BucketPrimary: {Lines: 90, Commits: 10, Files: 5},
					domain.BucketBot:     {Lines: 40, Commits: 3, Files: 2},
					domain.BucketOther:   {Lines: 20, Commits: 2, Files: 1},
				},
				Languages:  domain.LanguageTally{"Go": 120, "Python": 30},
				AnalyzedAt: fixedNow,
			},
		},
		{
			name:      "language counts are capped at total lines",
			languages: domain.LanguageTally{"Go": 500, "Shell": 0},
			authors: []domain.AuthorContribution{
				{Author: "jane", Contribution: domain.Contribution{Lines: 100, Commits: 1, Files: 1}},
			},
			expectedRecord: &domain.RepositoryRecord{
				Name:        "api",
				DisplayName: "API",
				Branch:      "main",
				Totals:      domain.Contribution{Lines: 100, Commits: 1, Files: 1},
				Buckets: map[domain.AuthorBucket]domain.Contribution{
					domain.BucketPrimary: {Lines: 100, Commits: 1, Files: 1},
				},
				Languages:  domain.LanguageTally{"Go": 100},
				AnalyzedAt: fixedNow,
			},
		},
		{
			name:            "line counter failure",
			countErr:        errTool,
			skipAuthors:     true,
			expectErr:       true,
			expectedInError: "line count",
		},
		{
			name:            "authorship failure",
			languages:       domain.LanguageTally{"Go": 1},
			authorsErr:      errTool,
			expectErr:       true,
			expectedInError: "authorship",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			counter := new(mockLineCounter)
			reader := new(mockAuthorshipReader)

			var langs any
			if tc.languages != nil {
				langs = tc.languages
			}
			counter.On("CountLines", mock.Anything, "/work/api").Return(langs, tc.countErr)
			if !tc.skipAuthors {
				var authors any
				if tc.authors != nil {
					authors = tc.authors
				}
				reader.On("ReadAuthors", mock.Anything, "/work/api", "main").Return(authors, tc.authorsErr)
			}

			extractor := NewExtractor(counter, reader, newTestClassifier(t), time.Minute, zap.NewNop())
			extractor.now = func() time.Time { return fixedNow }

			outcome := extractor.Extract(context.Background(), target)

			assert.Equal(t, "api", outcome.Name)
			if tc.expectErr {
				assert.False(t, outcome.OK())
				assert.Nil(t, outcome.Record)
				assert.ErrorIs(t, outcome.Err, domain.ErrExtraction)
				assert.ErrorIs(t, outcome.Err, errTool)
				assert.Contains(t, outcome.Err.Error(), tc.expectedInError)
			} else {
				require.True(t, outcome.OK())
				assert.Equal(t, tc.expectedRecord, outcome.Record)
				assert.NoError(t, outcome.Record.Validate())
			}

			counter.AssertExpectations(t)
			reader.AssertExpectations(t)
		})
	}
}

func TestExtractor_ToolCallsHaveDeadline(t *testing.T) {
	counter := new(mockLineCounter)
	reader := new(mockAuthorshipReader)

	hasDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})
	counter.On("CountLines", hasDeadline, "/work/api").Return(domain.LanguageTally{}, nil)
	reader.On("ReadAuthors", hasDeadline, "/work/api", "").Return([]domain.AuthorContribution{}, nil)

	extractor := NewExtractor(counter, reader, newTestClassifier(t), time.Second, zap.NewNop())
	outcome := extractor.Extract(context.Background(), Target{Name: "api", Path: "/work/api"})

	require.True(t, outcome.OK())
	assert.Equal(t, domain.Contribution{}, outcome.Record.Totals)
	assert.Empty(t, outcome.Record.Languages)
	counter.AssertExpectations(t)
	reader.AssertExpectations(t)
}

func TestExtractor_DetectsTechnologies(t *testing.T) {
	testCases := []struct {
		name     string
		techs    []string
		err      error
		expected []string
	}{
		{name: "recorded on the record", techs: []string{"docker", "go"}, expected: []string{"docker", "go"}},
		{name: "failure leaves the record intact", err: errors.New("permission denied")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			counter := new(mockLineCounter)
			reader := new(mockAuthorshipReader)
			detector := new(mockDetector)

			counter.On("CountLines", mock.Anything, "/work/api").Return(domain.LanguageTally{"Go": 10}, nil)
			reader.On("ReadAuthors", mock.Anything, "/work/api", "main").Return([]domain.AuthorContribution{
				{Author: "jane", Contribution: domain.Contribution{Lines: 10, Commits: 1, Files: 1}},
			}, nil)
			var techs any
			if tc.techs != nil {
				techs = tc.techs
			}
			detector.On("DetectTechnologies", mock.Anything, "/work/api").Return(techs, tc.err)

			extractor := NewExtractor(counter, reader, newTestClassifier(t), time.Minute, zap.NewNop()).WithDetector(detector)
			outcome := extractor.Extract(context.Background(), Target{Name: "api", Branch: "main", Path: "/work/api"})

			require.True(t, outcome.OK())
			assert.Equal(t, tc.expected, outcome.Record.Technologies)
			assert.Equal(t, 10, outcome.Record.Totals.Lines)
			detector.AssertExpectations(t)
		})
	}
}
