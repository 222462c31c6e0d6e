package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

func newTestRenderer() *Renderer {
	return NewRenderer(RendererOptions{
		Title:      "Unified Code Statistics",
		DateFormat: "January 2, 2006 at 15:04 UTC",
		ChartLink:  "assets/language_stats.svg",
	}, zap.NewNop())
}

func sampleUnified() domain.UnifiedStatistics {
	return newTestAggregator().Aggregate([]domain.RepositoryRecord{
		record("api", domain.Contribution{Lines: 1200, Commits: 10, Files: 5}, domain.Contribution{Lines: 720, Commits: 7, Files: 3},
			domain.LanguageTally{"Go": 1000, "Python": 200}),
		record("cli", domain.Contribution{Lines: 300, Commits: 5, Files: 3}, domain.Contribution{Lines: 180, Commits: 3, Files: 2},
			domain.LanguageTally{"Go": 300}),
	})
}

func TestRenderer_RenderMarkdown(t *testing.T) {
	md, err := newTestRenderer().RenderMarkdown(sampleUnified(), nil)
	require.NoError(t, err)

	for _, want := range []string{
		"# Unified Code Statistics",
		"_Last updated: March 1, 2026 at 12:00 UTC_",
		"https://img.shields.io/badge/Lines%20of%20code-1%2C500-blue?style=for-the-badge",
		"- **Lines of code:** 1,500",
		"- **Median lines per repository:** 750",
		"- **My share:** 60.0% of lines, 66.7% of commits, 62.5% of files",
		"**TOTAL**",
		"**1,500**",
		"60.0%/66.7%/62.5%",
		"![Language distribution](assets/language_stats.svg)",
		"| Go ",
		"86.7%",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "## Growth")
	assert.NotContains(t, md, "detected languages")
	assert.NotContains(t, md, "## Tech stack")

	assert.Less(t, strings.Index(md, "| **TOTAL**"), strings.Index(md, "| api"), "total row comes first")
	assert.Less(t, strings.Index(md, "| api"), strings.Index(md, "| cli"), "rows keep config order")
}

func TestRenderer_LanguageTableMatchesChart(t *testing.T) {
	u := newTestAggregator().Aggregate([]domain.RepositoryRecord{
		record("api", domain.Contribution{Lines: 1000, Commits: 4, Files: 4}, domain.Contribution{Lines: 500, Commits: 2, Files: 2},
			domain.LanguageTally{"Go": 600, "JSON": 250, "Python": 100, "Shell": 50}),
	})
	opts := RendererOptions{
		Title:             "Stats",
		DateFormat:        "2006-01-02",
		TopLanguages:      2,
		ExcludedLanguages: []string{"json"},
	}

	md, err := NewRenderer(opts, zap.NewNop()).RenderMarkdown(u, nil)
	require.NoError(t, err)

	assert.Contains(t, md, "| Go ")
	assert.Contains(t, md, "| Python ")
	assert.NotContains(t, md, "| JSON ")
	assert.NotContains(t, md, "| Shell ")
	assert.Contains(t, md, "85.7%")
	assert.Contains(t, md, "14.3%")
	assert.Contains(t, md, "_Showing 2 of 4 detected languages._")

	chart := NewChartRenderer(ChartOptions{TopN: opts.TopLanguages, Excluded: opts.ExcludedLanguages}, zap.NewNop()).RenderSVG(u.Languages)
	assert.Contains(t, chart, ">85.7%<")
	assert.Contains(t, chart, ">14.3%<")
}

func TestRenderer_TechStack(t *testing.T) {
	u := sampleUnified()
	u.Technologies = []string{"docker", "go", "postgres"}

	md, err := newTestRenderer().RenderMarkdown(u, nil)
	require.NoError(t, err)
	assert.Contains(t, md, "## Tech stack")
	assert.Contains(t, md, "[![Tech stack](https://skillicons.dev/icons?i=docker,go,postgres&perline=12)](https://skillicons.dev)")
}

func TestRenderer_EmptyStatistics(t *testing.T) {
	u := newTestAggregator().Aggregate(nil)
	md, err := newTestRenderer().RenderMarkdown(u, nil)
	require.NoError(t, err)

	assert.Contains(t, md, "# Unified Code Statistics")
	assert.Contains(t, md, "- **Repositories analyzed:** 0")
	assert.Contains(t, md, "0.0% of lines")
	assert.Contains(t, md, "_No languages detected._")
	assert.NotContains(t, md, "img.shields.io")
}

func TestRenderer_Growth(t *testing.T) {
	growth := &domain.Growth{Days: 30, Totals: domain.Contribution{Lines: 1234, Commits: 0, Files: -2}, Repos: 1}
	md, err := newTestRenderer().RenderMarkdown(sampleUnified(), growth)
	require.NoError(t, err)

	assert.Contains(t, md, "## Growth (last 30 days)")
	assert.Contains(t, md, "- **Lines:** +1,234")
	assert.Contains(t, md, "- **Commits:** 0")
	assert.Contains(t, md, "- **Files:** -2")
}

func TestRenderer_RejectsInconsistentStatistics(t *testing.T) {
	u := sampleUnified()
	u.Totals.Lines++

	_, err := newTestRenderer().RenderMarkdown(u, nil)
	assert.ErrorIs(t, err, domain.ErrRender)
}

func TestRenderer_MentionsFailures(t *testing.T) {
	u := sampleUnified()
	u.Failures = []domain.Failure{{Repository: "web", Stage: StageExtract, Reason: "timeout"}}

	md, err := newTestRenderer().RenderMarkdown(u, nil)
	require.NoError(t, err)
	assert.Contains(t, md, "_1 repositories could not be analyzed in this run._")
}

func TestBadgeURL(t *testing.T) {
	testCases := []struct {
		name     string
		label    string
		value    string
		expected string
	}{
		{name: "spaces and commas", label: "Lines of code", value: "12,345", expected: "https://img.shields.io/badge/Lines%20of%20code-12%2C345-blue?style=for-the-badge"},
		{name: "dashes are doubled", label: "Self-hosted", value: "3", expected: "https://img.shields.io/badge/Self--hosted-3-blue?style=for-the-badge"},
		{name: "underscores are doubled", label: "snake_case", value: "1", expected: "https://img.shields.io/badge/snake__case-1-blue?style=for-the-badge"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, BadgeURL(tc.label, tc.value, "blue"))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "60.0%", FormatPercent(domain.Percentage(90, 150)))
	assert.Equal(t, "0.0%", FormatPercent(domain.Percentage(5, 0)))
	assert.Equal(t, "100.0%", FormatPercent(domain.Percentage(3, 3)))
}
