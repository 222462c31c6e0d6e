package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// credentialPattern matches the userinfo part of an https clone URL.
var credentialPattern = regexp.MustCompile(`://[^@/\s]+@`)

// CloneURL builds an authenticated https clone URL for organization/name.
func CloneURL(organization, name, token string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "github.com",
		Path:   "/" + organization + "/" + name + ".git",
	}
	if token != "" {
		u.User = url.UserPassword("x-access-token", token)
	}
	return u.String()
}

// Redact strips credentials from anything that may echo a clone URL.
func Redact(s string) string {
	return credentialPattern.ReplaceAllString(s, "://***@")
}

// Cloner clones repositories with a bounded number of attempts.
type Cloner struct {
	runner   CommandRunner
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewCloner creates a Cloner that tries attempts times, waiting backoff
// between failures.
func NewCloner(runner CommandRunner, attempts int, backoff time.Duration, logger *zap.Logger) *Cloner {
	if attempts < 1 {
		attempts = 1
	}
	return &Cloner{
		runner:   runner,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

// Clone checks out branch of cloneURL into dest. dest is removed before each
// attempt so a half-finished clone never survives.
func (c *Cloner) Clone(ctx context.Context, cloneURL, branch, dest string) error {
	attempt := 0
	var clearErr error
	operation := func() (struct{}, error) {
		attempt++
		if err := os.RemoveAll(dest); err != nil {
			clearErr = fmt.Errorf("failed to clear clone directory: %w", err)
			return struct{}{}, backoff.Permanent(clearErr)
		}

		_, err := c.runner.Run(ctx, "", "git", "clone", "--single-branch", "--branch", branch, cloneURL, dest)
		if err == nil {
			c.logger.Debug("clone succeeded", zap.String("dest", dest), zap.Int("attempt", attempt))
			return struct{}{}, nil
		}
		err = errors.New(Redact(err.Error()))
		c.logger.Warn("clone attempt failed",
			zap.String("dest", dest),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.Error(err),
		)
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.backoff)),
		backoff.WithMaxTries(uint(c.attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	switch {
	case err == nil:
		return nil
	case clearErr != nil:
		return clearErr
	case ctx.Err() != nil:
		return fmt.Errorf("clone cancelled after %d attempts: %w", attempt, err)
	default:
		return fmt.Errorf("clone failed after %d attempts: %w", attempt, err)
	}
}
