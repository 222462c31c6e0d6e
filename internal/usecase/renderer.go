package usecase

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

const (
	badgeBase      = "https://img.shields.io/badge/"
	skillIconsBase = "https://skillicons.dev/icons"
	iconsPerLine   = 12
)

// RendererOptions controls the README layout.
type RendererOptions struct {
	Title      string
	DateFormat string
	// ChartLink is the README-relative path of the language chart.
	ChartLink string
	// TopLanguages and ExcludedLanguages select the listed languages the
	// same way the chart does. A non-positive TopLanguages lists them all.
	TopLanguages      int
	ExcludedLanguages []string
}

// Renderer produces the profile README from unified statistics.
type Renderer struct {
	opts   RendererOptions
	logger *zap.Logger
}

// NewRenderer creates a new Renderer.
func NewRenderer(opts RendererOptions, logger *zap.Logger) *Renderer {
	return &Renderer{opts: opts, logger: logger}
}

// RenderMarkdown renders u as a markdown document. growth may be nil.
// Malformed statistics are an ErrRender.
func (r *Renderer) RenderMarkdown(u domain.UnifiedStatistics, growth *domain.Growth) (string, error) {
	if err := u.CheckConsistency(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.opts.Title)

	if badges := summaryBadges(u); len(badges) > 0 {
		b.WriteString(strings.Join(badges, " "))
		b.WriteString("\n\n")
	}
	if !u.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Last updated: %s_\n\n", u.GeneratedAt.UTC().Format(r.opts.DateFormat))
	}

	r.writeSummary(&b, u)
	r.writeDistribution(&b, u)
	r.writeRepositories(&b, u)
	r.writeLanguages(&b, u)
	if len(u.Technologies) > 0 {
		b.WriteString("## Tech stack\n\n")
		fmt.Fprintf(&b, "[![Tech stack](%s)](https://skillicons.dev)\n\n", SkillIconsURL(u.Technologies, iconsPerLine))
	}
	if growth != nil {
		writeGrowth(&b, growth)
	}
	if len(u.Failures) > 0 {
		fmt.Fprintf(&b, "_%d repositories could not be analyzed in this run._\n", len(u.Failures))
	}

	r.logger.Debug("rendered markdown", zap.Int("bytes", b.Len()))
	return b.String(), nil
}

func (r *Renderer) writeSummary(b *strings.Builder, u domain.UnifiedStatistics) {
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(b, "- **Repositories analyzed:** %d\n", u.ReposProcessed())
	fmt.Fprintf(b, "- **Lines of code:** %s\n", humanize.Comma(int64(u.Totals.Lines)))
	fmt.Fprintf(b, "- **Commits:** %s\n", humanize.Comma(int64(u.Totals.Commits)))
	fmt.Fprintf(b, "- **Files:** %s\n", humanize.Comma(int64(u.Totals.Files)))
	if median, ok := medianLines(u.Repositories); ok {
		fmt.Fprintf(b, "- **Median lines per repository:** %s\n", humanize.Comma(int64(median)))
	}
	d := u.Distribution(domain.BucketPrimary)
	fmt.Fprintf(b, "- **My share:** %s of lines, %s of commits, %s of files\n\n",
		FormatPercent(d.Lines), FormatPercent(d.Commits), FormatPercent(d.Files))
}

func (r *Renderer) writeDistribution(b *strings.Builder, u domain.UnifiedStatistics) {
	b.WriteString("## Author distribution\n\n")
	tbl := newMarkdownTable(5)
	tbl.AppendHeader(table.Row{"Author", "Lines", "Commits", "Files", "Share"})
	for _, bucket := range domain.Buckets {
		c := u.Bucket(bucket)
		tbl.AppendRow(table.Row{
			bucketLabel(bucket),
			humanize.Comma(int64(c.Lines)),
			humanize.Comma(int64(c.Commits)),
			humanize.Comma(int64(c.Files)),
			distributionCell(u.Distribution(bucket)),
		})
	}
	b.WriteString(tbl.RenderMarkdown())
	b.WriteString("\n\n")
}

func (r *Renderer) writeRepositories(b *strings.Builder, u domain.UnifiedStatistics) {
	b.WriteString("## Contributions by repository\n\n")
	tbl := newMarkdownTable(5)
	tbl.AppendHeader(table.Row{"Repository", "Lines", "Commits", "Files", "My share (lines/commits/files)"})
	tbl.AppendRow(table.Row{
		"**TOTAL**",
		"**" + humanize.Comma(int64(u.Totals.Lines)) + "**",
		"**" + humanize.Comma(int64(u.Totals.Commits)) + "**",
		"**" + humanize.Comma(int64(u.Totals.Files)) + "**",
		"**" + distributionCell(u.Distribution(domain.BucketPrimary)) + "**",
	})
	for _, repo := range u.Repositories {
		name := repo.DisplayName
		if name == "" {
			name = repo.Name
		}
		tbl.AppendRow(table.Row{
			name,
			humanize.Comma(int64(repo.Totals.Lines)),
			humanize.Comma(int64(repo.Totals.Commits)),
			humanize.Comma(int64(repo.Totals.Files)),
			distributionCell(domain.DistributionOf(repo.Bucket(domain.BucketPrimary), repo.Totals)),
		})
	}
	b.WriteString(tbl.RenderMarkdown())
	b.WriteString("\n\n")
}

func (r *Renderer) writeLanguages(b *strings.Builder, u domain.UnifiedStatistics) {
	b.WriteString("## Languages\n\n")
	if r.opts.ChartLink != "" {
		fmt.Fprintf(b, "![Language distribution](%s)\n\n", r.opts.ChartLink)
	}

	langs := TopLanguages(u.Languages, r.opts.TopLanguages, r.opts.ExcludedLanguages)
	if len(langs) == 0 {
		b.WriteString("_No languages detected._\n\n")
		return
	}

	// Shares are relative to the listed languages, as in the chart.
	total := 0
	for _, l := range langs {
		total += l.Lines
	}
	tbl := newMarkdownTable(3)
	tbl.AppendHeader(table.Row{"Language", "Lines", "Share"})
	for _, l := range langs {
		tbl.AppendRow(table.Row{
			l.Name,
			humanize.Comma(int64(l.Lines)),
			FormatPercent(domain.Percentage(l.Lines, total)),
		})
	}
	b.WriteString(tbl.RenderMarkdown())
	b.WriteString("\n\n")
	if detected := len(SortedLanguages(u.Languages)); detected > len(langs) {
		fmt.Fprintf(b, "_Showing %d of %d detected languages._\n\n", len(langs), detected)
	}
}

func writeGrowth(b *strings.Builder, g *domain.Growth) {
	fmt.Fprintf(b, "## Growth (last %d days)\n\n", g.Days)
	fmt.Fprintf(b, "- **Lines:** %s\n", signed(g.Totals.Lines))
	fmt.Fprintf(b, "- **Commits:** %s\n", signed(g.Totals.Commits))
	fmt.Fprintf(b, "- **Files:** %s\n", signed(g.Totals.Files))
	fmt.Fprintf(b, "- **My lines:** %s\n", signed(g.Primary.Lines))
	fmt.Fprintf(b, "- **Repositories:** %s\n\n", signed(g.Repos))
}

func signed(n int) string {
	if n > 0 {
		return "+" + humanize.Comma(int64(n))
	}
	return humanize.Comma(int64(n))
}

// newMarkdownTable returns a table whose numeric columns (all but the first) are right-aligned.
func newMarkdownTable(columns int) table.Writer {
	tbl := table.NewWriter()
	configs := make([]table.ColumnConfig, 0, columns-1)
	for i := 2; i <= columns; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	tbl.SetColumnConfigs(configs)
	return tbl
}

// FormatPercent renders a percentage with exactly one decimal place.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func distributionCell(d domain.Distribution) string {
	return FormatPercent(d.Lines) + "/" + FormatPercent(d.Commits) + "/" + FormatPercent(d.Files)
}

func bucketLabel(b domain.AuthorBucket) string {
	switch b {
	case domain.BucketPrimary:
		return "Me"
	case domain.BucketBot:
		return "Bots"
	default:
		return "Others"
	}
}

func medianLines(repos []domain.RepositoryRecord) (float64, bool) {
	if len(repos) == 0 {
		return 0, false
	}
	lines := make(stats.Float64Data, len(repos))
	for i, repo := range repos {
		lines[i] = float64(repo.Totals.Lines)
	}
	median, err := stats.Median(lines)
	if err != nil {
		return 0, false
	}
	rounded, err := stats.Round(median, 0)
	if err != nil {
		return 0, false
	}
	return rounded, true
}

// summaryBadges builds shields.io badges for the positive totals.
func summaryBadges(u domain.UnifiedStatistics) []string {
	var badges []string
	add := func(label string, value int, color string) {
		if value <= 0 {
			return
		}
		badges = append(badges, fmt.Sprintf("![%s](%s)", label, BadgeURL(label, humanize.Comma(int64(value)), color)))
	}
	add("Lines of code", u.Totals.Lines, "blue")
	add("Commits", u.Totals.Commits, "green")
	add("Files", u.Totals.Files, "orange")
	add("Repositories", u.ReposProcessed(), "purple")
	return badges
}

// BadgeURL returns a static shields.io badge URL.
func BadgeURL(label, value, color string) string {
	return badgeBase + badgeSegment(label) + "-" + badgeSegment(value) + "-" + color + "?style=for-the-badge"
}

// SkillIconsURL returns a skillicons.dev image URL showing ids in order.
func SkillIconsURL(ids []string, perLine int) string {
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.QueryEscape(id)
	}
	return fmt.Sprintf("%s?i=%s&perline=%d", skillIconsBase, strings.Join(escaped, ","), perLine)
}

// badgeSegment escapes the shields.io separators before URL escaping.
func badgeSegment(s string) string {
	s = strings.ReplaceAll(s, "-", "--")
	s = strings.ReplaceAll(s, "_", "__")
	return url.PathEscape(s)
}

// LanguageLines is one entry of a sorted language listing.
type LanguageLines struct {
	Name  string
	Lines int
}

// SortedLanguages orders t by lines descending, then by name ascending.
// Languages with no lines are omitted.
func SortedLanguages(t domain.LanguageTally) []LanguageLines {
	langs := make([]LanguageLines, 0, len(t))
	for name, lines := range t {
		if lines > 0 {
			langs = append(langs, LanguageLines{Name: name, Lines: lines})
		}
	}
	sort.Slice(langs, func(i, j int) bool {
		if langs[i].Lines != langs[j].Lines {
			return langs[i].Lines > langs[j].Lines
		}
		return langs[i].Name < langs[j].Name
	})
	return langs
}
