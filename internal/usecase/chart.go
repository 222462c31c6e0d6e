package usecase

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// Chart geometry, in SVG user units.
const (
	chartWidth    = 520
	chartPadding  = 20
	chartHeader   = 50
	rowHeight     = 28
	barHeight     = 18
	labelWidth    = 110
	percentWidth  = 60
	maxBarWidth   = chartWidth - 2*chartPadding - labelWidth - percentWidth
	maxNameLength = 12
	truncatedTo   = 10
)

var barColors = []string{
	"#4c71f2", "#f2994c", "#3fb27f", "#d94c6a", "#9b59b6",
	"#1abc9c", "#e6c229", "#7f8c8d", "#e67e22", "#2e86c1",
}

// ChartOptions controls which languages the chart shows.
type ChartOptions struct {
	Title    string
	TopN     int
	Excluded []string
}

// ChartRenderer draws the language bar chart.
type ChartRenderer struct {
	opts   ChartOptions
	logger *zap.Logger
}

// NewChartRenderer creates a new ChartRenderer.
func NewChartRenderer(opts ChartOptions, logger *zap.Logger) *ChartRenderer {
	if opts.Title == "" {
		opts.Title = "Languages by lines of code"
	}
	return &ChartRenderer{opts: opts, logger: logger}
}

// TopLanguages returns at most n languages of t by lines descending, ties by
// name ascending, after dropping excluded names (compared case-insensitively).
// A non-positive n means no limit.
func TopLanguages(t domain.LanguageTally, n int, excluded []string) []LanguageLines {
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[strings.ToLower(name)] = struct{}{}
	}

	top := make([]LanguageLines, 0, len(t))
	for _, l := range SortedLanguages(t) {
		if n > 0 && len(top) == n {
			break
		}
		if _, ok := skip[strings.ToLower(l.Name)]; ok {
			continue
		}
		top = append(top, l)
	}
	return top
}

// RenderSVG draws a horizontal bar per language. Bars are scaled linearly to
// the largest one. An empty tally yields a valid placeholder image.
func (c *ChartRenderer) RenderSVG(languages domain.LanguageTally) string {
	langs := TopLanguages(languages, c.opts.TopN, c.opts.Excluded)

	rows := len(langs)
	if rows == 0 {
		rows = 1
	}
	height := chartHeader + rows*rowHeight + chartPadding

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`,
		chartWidth, height, chartWidth, height)
	b.WriteString("\n")
	fmt.Fprintf(&b, `  <rect width="%d" height="%d" rx="6" fill="#ffffff" stroke="#e1e4e8"/>`, chartWidth, height)
	b.WriteString("\n")
	fmt.Fprintf(&b, `  <text x="%d" y="%d" font-family="Segoe UI, Helvetica, Arial, sans-serif" font-size="16" font-weight="600" fill="#24292e">%s</text>`,
		chartPadding, chartPadding+12, escapeXML(c.opts.Title))
	b.WriteString("\n")

	if len(langs) == 0 {
		fmt.Fprintf(&b, `  <text x="%d" y="%d" font-family="Segoe UI, Helvetica, Arial, sans-serif" font-size="12" fill="#586069">No language data</text>`,
			chartPadding, chartHeader+barHeight-4)
		b.WriteString("\n</svg>\n")
		return b.String()
	}

	charted := 0
	for _, l := range langs {
		charted += l.Lines
	}
	largest := langs[0].Lines

	for i, l := range langs {
		y := chartHeader + i*rowHeight
		width := l.Lines * maxBarWidth / largest
		if width < 1 {
			width = 1
		}
		fmt.Fprintf(&b, `  <text x="%d" y="%d" font-family="Segoe UI, Helvetica, Arial, sans-serif" font-size="12" fill="#24292e">%s</text>`,
			chartPadding, y+barHeight-5, escapeXML(truncateName(l.Name)))
		b.WriteString("\n")
		fmt.Fprintf(&b, `  <rect x="%d" y="%d" width="%d" height="%d" rx="3" fill="%s"/>`,
			chartPadding+labelWidth, y, width, barHeight, barColors[i%len(barColors)])
		b.WriteString("\n")
		fmt.Fprintf(&b, `  <text x="%d" y="%d" font-family="Segoe UI, Helvetica, Arial, sans-serif" font-size="12" fill="#586069">%s</text>`,
			chartPadding+labelWidth+width+6, y+barHeight-5, FormatPercent(domain.Percentage(l.Lines, charted)))
		b.WriteString("\n")
	}
	b.WriteString("</svg>\n")

	c.logger.Debug("rendered chart", zap.Int("languages", len(langs)))
	return b.String()
}

// truncateName shortens long language names to fit the label column.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxNameLength {
		return name
	}
	return string(runes[:truncatedTo]) + "..."
}

func escapeXML(s string) string {
	var b bytes.Buffer
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
