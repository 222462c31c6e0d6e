package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// Exclusions lists what a line counter must skip.
type Exclusions struct {
	Dirs  []string
	Exts  []string
	Files []string
}

// ClocCounter counts lines per language by running cloc.
type ClocCounter struct {
	runner     CommandRunner
	exclusions Exclusions
	overrides  LanguageOverrides
	logger     *zap.Logger
}

// NewClocCounter creates a new ClocCounter.
func NewClocCounter(runner CommandRunner, exclusions Exclusions, overrides LanguageOverrides, logger *zap.Logger) *ClocCounter {
	return &ClocCounter{
		runner:     runner,
		exclusions: exclusions,
		overrides:  overrides,
		logger:     logger,
	}
}

// clocLanguage is one per-language entry of cloc's JSON report.
type clocLanguage struct {
	Files   int `json:"nFiles"`
	Blank   int `json:"blank"`
	Comment int `json:"comment"`
	Code    int `json:"code"`
}

// CountLines returns code lines per language for the working copy at path.
func (c *ClocCounter) CountLines(ctx context.Context, path string) (domain.LanguageTally, error) {
	out, err := c.runner.Run(ctx, path, "cloc", c.args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to run cloc: %w", err)
	}
	tally, err := parseClocJSON(out)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("cloc finished", zap.Int("languages", len(tally)))
	return tally, nil
}

func (c *ClocCounter) args() []string {
	args := []string{"--json", "--quiet"}
	if len(c.exclusions.Dirs) > 0 {
		args = append(args, "--exclude-dir="+strings.Join(c.exclusions.Dirs, ","))
	}
	if len(c.exclusions.Exts) > 0 {
		args = append(args, "--exclude-ext="+strings.Join(c.exclusions.Exts, ","))
	}
	if len(c.exclusions.Files) > 0 {
		quoted := make([]string, len(c.exclusions.Files))
		for i, f := range c.exclusions.Files {
			quoted[i] = regexp.QuoteMeta(f)
		}
		args = append(args, "--not-match-f=^("+strings.Join(quoted, "|")+")$")
	}
	args = append(args, c.overrides.clocArgs()...)
	return append(args, ".")
}

// parseClocJSON reads cloc's --json report. The "header" and "SUM" entries are
// metadata, not languages. Empty output means nothing countable was found.
func parseClocJSON(out []byte) (domain.LanguageTally, error) {
	tally := domain.LanguageTally{}
	if len(bytes.TrimSpace(out)) == 0 {
		return tally, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cloc output: %w", err)
	}

	for name, entry := range raw {
		if name == "header" || name == "SUM" {
			continue
		}
		var lang clocLanguage
		if err := json.Unmarshal(entry, &lang); err != nil {
			return nil, fmt.Errorf("failed to parse cloc entry %q: %w", name, err)
		}
		if lang.Code > 0 {
			tally[name] += lang.Code
		}
	}
	return tally, nil
}
