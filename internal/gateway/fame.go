package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// FameReader reads per-author authorship with git-fame.
type FameReader struct {
	runner CommandRunner
	logger *zap.Logger
}

// NewFameReader creates a new FameReader.
func NewFameReader(runner CommandRunner, logger *zap.Logger) *FameReader {
	return &FameReader{runner: runner, logger: logger}
}

// fameReport is the subset of `git fame --format json` this tool reads.
type fameReport struct {
	Data []json.RawMessage `json:"data"`
}

// ReadAuthors returns the lines, commits and files attributed to each author
// at HEAD of branch. An empty branch means the checked-out HEAD.
func (f *FameReader) ReadAuthors(ctx context.Context, path, branch string) ([]domain.AuthorContribution, error) {
	args := []string{"fame", "--format", "json"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	out, err := f.runner.Run(ctx, path, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run git fame: %w", err)
	}

	authors, skipped, err := parseFameJSON(out)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warn("skipped unparsable git fame rows", zap.Int("rows", skipped))
	}
	return authors, nil
}

// parseFameJSON accepts rows shaped as [author, loc, commits, files, ...] or as
// {"author", "loc", "commits", "files"} objects. Negative and non-numeric
// counts become zero.
func parseFameJSON(out []byte) ([]domain.AuthorContribution, int, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, 0, fmt.Errorf("git fame produced no output")
	}

	var report fameReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, 0, fmt.Errorf("failed to parse git fame output: %w", err)
	}
	if report.Data == nil {
		return nil, 0, fmt.Errorf("git fame output has no data field")
	}

	authors := make([]domain.AuthorContribution, 0, len(report.Data))
	skipped := 0
	for _, row := range report.Data {
		author, ok := parseFameRow(row)
		if !ok {
			skipped++
			continue
		}
		authors = append(authors, author)
	}
	return authors, skipped, nil
}

func parseFameRow(row json.RawMessage) (domain.AuthorContribution, bool) {
	dec := json.NewDecoder(bytes.NewReader(row))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return domain.AuthorContribution{}, false
	}

	switch v := value.(type) {
	case []any:
		if len(v) < 4 {
			return domain.AuthorContribution{}, false
		}
		name, ok := v[0].(string)
		if !ok {
			return domain.AuthorContribution{}, false
		}
		return domain.AuthorContribution{
			Author: name,
			Contribution: domain.Contribution{
				Lines:   count(v[1]),
				Commits: count(v[2]),
				Files:   count(v[3]),
			},
		}, true
	case map[string]any:
		name, _ := v["author"].(string)
		return domain.AuthorContribution{
			Author: name,
			Contribution: domain.Contribution{
				Lines:   count(v["loc"]),
				Commits: count(v["commits"]),
				Files:   count(v["files"]),
			},
		}, true
	default:
		return domain.AuthorContribution{}, false
	}
}

func count(v any) int {
	var n float64
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		n = float64(i)
	default:
		return 0
	}
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}
