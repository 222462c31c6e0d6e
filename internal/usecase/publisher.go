package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/artifact"
	"github.com/naka-gawa/profile-stats/internal/gateway"
)

// FileCommitter commits a single file to a repository branch.
type FileCommitter interface {
	UpsertFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) (gateway.UpsertResult, error)
}

// PublishTarget is the branch the rendered files are committed to.
type PublishTarget struct {
	Owner   string
	Repo    string
	Branch  string
	Message string
}

// OutputFile is a rendered file. Path is relative to the profile repository root.
type OutputFile struct {
	Path    string
	Content []byte
}

// Publisher writes rendered files locally and optionally commits them.
type Publisher struct {
	committer FileCommitter
	target    PublishTarget
	logger    *zap.Logger
}

// NewPublisher creates a new Publisher. A nil committer only writes files.
func NewPublisher(committer FileCommitter, target PublishTarget, logger *zap.Logger) *Publisher {
	return &Publisher{
		committer: committer,
		target:    target,
		logger:    logger,
	}
}

// Publish writes every file, then commits each one whose content changed.
func (p *Publisher) Publish(ctx context.Context, files []OutputFile) error {
	for _, f := range files {
		if err := artifact.WriteFile(f.Path, f.Content); err != nil {
			return err
		}
		p.logger.Info("wrote output", zap.String("path", f.Path), zap.Int("bytes", len(f.Content)))
	}

	if p.committer == nil {
		p.logger.Info("skipping commit", zap.Int("files", len(files)))
		return nil
	}

	for _, f := range files {
		repoPath, err := repositoryPath(f.Path)
		if err != nil {
			return err
		}
		result, err := p.committer.UpsertFile(ctx, p.target.Owner, p.target.Repo, p.target.Branch, repoPath, p.target.Message, f.Content)
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", repoPath, err)
		}
		p.logger.Info("published output",
			zap.String("path", repoPath),
			zap.String("result", result.String()),
			zap.String("repository", p.target.Owner+"/"+p.target.Repo),
		)
	}
	return nil
}

func repositoryPath(path string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(path))
	if filepath.IsAbs(path) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("output path %q is outside the repository", path)
	}
	return clean, nil
}
