// Package classifier maps raw author identities to author buckets.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// NoMatch is the pattern index reported when an author falls through to "other".
const NoMatch = -1

// Classifier assigns an author string to exactly one bucket.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	primary []*regexp.Regexp
	bots    []*regexp.Regexp
}

// New compiles both pattern lists. Patterns are matched case-insensitively
// anywhere in the author string unless they anchor themselves.
func New(primaryPatterns, botPatterns []string) (*Classifier, error) {
	primary, err := compileAll(primaryPatterns)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "author_patterns.primary", err)
	}
	bots, err := compileAll(botPatterns)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "author_patterns.bots", err)
	}
	return &Classifier{primary: primary, bots: bots}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Classify returns the bucket for author.
func (c *Classifier) Classify(author string) domain.AuthorBucket {
	bucket, _ := c.ClassifyMatch(author)
	return bucket
}

// ClassifyMatch returns the bucket for author and the index of the pattern
// that decided it within its list, or NoMatch.
//
// Bot patterns are tested first so that automated commits made under a name
// resembling the primary author are still excluded.
func (c *Classifier) ClassifyMatch(author string) (domain.AuthorBucket, int) {
	if strings.TrimSpace(author) == "" {
		return domain.BucketOther, NoMatch
	}
	if i := firstMatch(c.bots, author); i != NoMatch {
		return domain.BucketBot, i
	}
	if i := firstMatch(c.primary, author); i != NoMatch {
		return domain.BucketPrimary, i
	}
	return domain.BucketOther, NoMatch
}

func firstMatch(patterns []*regexp.Regexp, author string) int {
	for i, re := range patterns {
		if re.MatchString(author) {
			return i
		}
	}
	return NoMatch
}
