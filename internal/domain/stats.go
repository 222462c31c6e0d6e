// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// AuthorBucket is the classification assigned to a raw author identity.
type AuthorBucket string

const (
	BucketPrimary AuthorBucket = "primary"
	BucketBot     AuthorBucket = "bot"
	BucketOther   AuthorBucket = "other"
)

// Buckets lists every author bucket in display order.
var Buckets = []AuthorBucket{BucketPrimary, BucketBot, BucketOther}

// Contribution is a (lines, commits, files) triple.
type Contribution struct {
	Lines   int `json:"lines"`
	Commits int `json:"commits"`
	Files   int `json:"files"`
}

// Add returns the field-wise sum of c and other.
func (c Contribution) Add(other Contribution) Contribution {
	return Contribution{
		Lines:   c.Lines + other.Lines,
		Commits: c.Commits + other.Commits,
		Files:   c.Files + other.Files,
	}
}

// IsNegative reports whether any field is below zero.
func (c Contribution) IsNegative() bool {
	return c.Lines < 0 || c.Commits < 0 || c.Files < 0
}

// AuthorContribution is one row of authorship output, before classification.
type AuthorContribution struct {
	Author string
	Contribution
}

// LanguageTally maps a language name to its accumulated line count.
type LanguageTally map[string]int

// Merge returns a new tally holding the sum of t and other.
// Names are matched exactly, so "Go" and "go" are distinct languages.
func (t LanguageTally) Merge(other LanguageTally) LanguageTally {
	merged := make(LanguageTally, len(t)+len(other))
	for lang, lines := range t {
		merged[lang] += lines
	}
	for lang, lines := range other {
		merged[lang] += lines
	}
	return merged
}

// Total returns the sum of all line counts in the tally.
func (t LanguageTally) Total() int {
	total := 0
	for _, lines := range t {
		total += lines
	}
	return total
}

// MergeTechnologies returns the sorted union of the technology identifiers in sets.
func MergeTechnologies(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, tech := range set {
			if tech != "" {
				seen[tech] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	merged := make([]string, 0, len(seen))
	for tech := range seen {
		merged = append(merged, tech)
	}
	sort.Strings(merged)
	return merged
}

// RepositoryRecord holds the extracted statistics for a single repository.
// It is the unit written to a per-repository artifact.
type RepositoryRecord struct {
	Name        string                        `json:"name"`
	DisplayName string                        `json:"display_name"`
	Branch      string                        `json:"branch,omitempty"`
	Totals      Contribution                  `json:"totals"`
	Buckets     map[AuthorBucket]Contribution `json:"buckets"`
	Languages   LanguageTally                 `json:"languages"`
	// Technologies lists the skill icon identifiers detected in the
	// repository's manifests, sorted.
	Technologies []string  `json:"technologies,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Bucket returns the contribution recorded for b, or zero when absent.
func (r RepositoryRecord) Bucket(b AuthorBucket) Contribution {
	return r.Buckets[b]
}

// Validate checks the record's internal consistency: no negative counts,
// bucket sums never exceed the totals, and no language exceeds total lines.
func (r RepositoryRecord) Validate() error {
	if r.Name == "" {
		return NewError(ErrConsistency, "<unnamed>", fmt.Errorf("record has no name"))
	}
	if r.Totals.IsNegative() {
		return NewError(ErrConsistency, r.Name, fmt.Errorf("negative totals %+v", r.Totals))
	}

	var bucketSum Contribution
	for bucket, c := range r.Buckets {
		if c.IsNegative() {
			return NewError(ErrConsistency, r.Name, fmt.Errorf("negative %s bucket %+v", bucket, c))
		}
		bucketSum = bucketSum.Add(c)
	}
	if bucketSum.Lines > r.Totals.Lines {
		return NewError(ErrConsistency, r.Name,
			fmt.Errorf("bucket lines %d exceed total lines %d", bucketSum.Lines, r.Totals.Lines))
	}
	if bucketSum.Commits > r.Totals.Commits {
		return NewError(ErrConsistency, r.Name,
			fmt.Errorf("bucket commits %d exceed total commits %d", bucketSum.Commits, r.Totals.Commits))
	}
	if bucketSum.Files > r.Totals.Files {
		return NewError(ErrConsistency, r.Name,
			fmt.Errorf("bucket files %d exceed total files %d", bucketSum.Files, r.Totals.Files))
	}

	for lang, lines := range r.Languages {
		if lines < 0 {
			return NewError(ErrConsistency, r.Name, fmt.Errorf("negative line count for %s", lang))
		}
		if lines > r.Totals.Lines {
			return NewError(ErrConsistency, r.Name,
				fmt.Errorf("language %s has %d lines, more than total %d", lang, lines, r.Totals.Lines))
		}
	}
	return nil
}

// Failure records why a repository is absent from the aggregate.
type Failure struct {
	Repository string `json:"repository"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

// Distribution is a bucket's share of each total metric, in percent.
type Distribution struct {
	Lines   float64 `json:"lines"`
	Commits float64 `json:"commits"`
	Files   float64 `json:"files"`
}

// Percentage returns value/total*100 rounded to one decimal place.
// A non-positive total yields 0.
func Percentage(value, total int) float64 {
	if total <= 0 {
		return 0
	}
	rounded, err := stats.Round(float64(value)*100/float64(total), 1)
	if err != nil {
		return 0
	}
	return math.Min(100, math.Max(0, rounded))
}

// DistributionOf computes the share of part within total for every metric.
func DistributionOf(part, total Contribution) Distribution {
	return Distribution{
		Lines:   Percentage(part.Lines, total.Lines),
		Commits: Percentage(part.Commits, total.Commits),
		Files:   Percentage(part.Files, total.Files),
	}
}

// UnifiedStatistics is the cross-repository rollup consumed by the renderer.
// Percentages are always derived from the counts and never stored on their own.
type UnifiedStatistics struct {
	RunID        string                        `json:"run_id"`
	GeneratedAt  time.Time                     `json:"generated_at"`
	Totals       Contribution                  `json:"totals"`
	Buckets      map[AuthorBucket]Contribution `json:"buckets"`
	Repositories []RepositoryRecord            `json:"repositories"`
	Languages    LanguageTally                 `json:"languages"`
	Technologies []string                      `json:"technologies,omitempty"`
	Failures     []Failure                     `json:"failures"`
}

// ReposProcessed is the number of repositories folded into the totals.
func (u UnifiedStatistics) ReposProcessed() int {
	return len(u.Repositories)
}

// Bucket returns the global contribution recorded for b.
func (u UnifiedStatistics) Bucket(b AuthorBucket) Contribution {
	return u.Buckets[b]
}

// Distribution returns the share of the global totals held by bucket b.
func (u UnifiedStatistics) Distribution(b AuthorBucket) Distribution {
	return DistributionOf(u.Bucket(b), u.Totals)
}

// MarshalJSON adds the derived fields to the document. They are ignored on decode
// and recomputed from the counts.
func (u UnifiedStatistics) MarshalJSON() ([]byte, error) {
	type plain UnifiedStatistics
	distribution := make(map[AuthorBucket]Distribution, len(Buckets))
	for _, b := range Buckets {
		distribution[b] = u.Distribution(b)
	}
	return json.Marshal(struct {
		plain
		ReposProcessed int                           `json:"repos_processed"`
		Distribution   map[AuthorBucket]Distribution `json:"distribution"`
	}{
		plain:          plain(u),
		ReposProcessed: u.ReposProcessed(),
		Distribution:   distribution,
	})
}

// CheckConsistency verifies that the per-repository totals add up to the
// global totals.
func (u UnifiedStatistics) CheckConsistency() error {
	var sum Contribution
	for _, repo := range u.Repositories {
		sum = sum.Add(repo.Totals)
	}
	if sum != u.Totals {
		return NewError(ErrRender, "unified statistics",
			fmt.Errorf("repository totals %+v do not match global totals %+v", sum, u.Totals))
	}
	return nil
}
