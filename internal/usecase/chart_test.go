package usecase

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// assertWellFormed fails unless svg parses as XML.
func assertWellFormed(t *testing.T, svg string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestTopLanguages(t *testing.T) {
	tally := domain.LanguageTally{
		"Go":     300,
		"Python": 300,
		"Rust":   100,
		"JSON":   5000,
		"Shell":  50,
		"C":      0,
	}

	testCases := []struct {
		name     string
		n        int
		excluded []string
		expected []LanguageLines
	}{
		{
			name:     "ties break by name and exclusions apply first",
			n:        3,
			excluded: []string{"json"},
			expected: []LanguageLines{{"Go", 300}, {"Python", 300}, {"Rust", 100}},
		},
		{
			name:     "limit larger than tally",
			n:        10,
			excluded: []string{"JSON"},
			expected: []LanguageLines{{"Go", 300}, {"Python", 300}, {"Rust", 100}, {"Shell", 50}},
		},
		{
			name:     "no exclusions",
			n:        1,
			expected: []LanguageLines{{"JSON", 5000}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TopLanguages(tally, tc.n, tc.excluded))
		})
	}
}

func TestChartRenderer_RenderSVG(t *testing.T) {
	chart := NewChartRenderer(ChartOptions{TopN: 10, Excluded: []string{"JSON"}}, zap.NewNop())
	svg := chart.RenderSVG(domain.LanguageTally{
		"Go":                         600,
		"Python":                     300,
		"Jupyter <Notebook> & stuff": 100,
		"JSON":                       9000,
	})

	assertWellFormed(t, svg)
	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.NotContains(t, svg, "JSON")
	assert.Contains(t, svg, "Jupyter &lt;N...")
	assert.Contains(t, svg, ">60.0%<")
	assert.Contains(t, svg, ">30.0%<")
	assert.Contains(t, svg, ">10.0%<")
	assert.Less(t, strings.Index(svg, ">Go<"), strings.Index(svg, ">Python<"))
	assert.Contains(t, svg, `width="310"`, "largest bar spans the full bar width")
}

func TestChartRenderer_Empty(t *testing.T) {
	svg := NewChartRenderer(ChartOptions{TopN: 10}, zap.NewNop()).RenderSVG(nil)
	assertWellFormed(t, svg)
	assert.Contains(t, svg, "No language data")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "TypeScript", truncateName("TypeScript"))
	assert.Equal(t, "Objective-C", truncateName("Objective-C"))
	assert.Equal(t, "Emacs Lisp", truncateName("Emacs Lisp"))
	assert.Equal(t, "Vim Script", truncateName("Vim Script"))
	assert.Equal(t, "Jupyter No...", truncateName("Jupyter Notebook"))
	assert.Equal(t, "ABCDEFGHIJKL", truncateName("ABCDEFGHIJKL"))
	assert.Equal(t, "ABCDEFGHIJ...", truncateName("ABCDEFGHIJKLM"))
}
