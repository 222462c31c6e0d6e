// Package gateway wraps the external systems the pipeline talks to: the
// GitHub REST and GraphQL APIs, git, and the line counting tools.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// RepositoryInfo is what validate --remote reports about a configured repository.
type RepositoryInfo struct {
	NameWithOwner string
	Private       bool
	Archived      bool
	DefaultBranch string
	BranchExists  bool
}

// UpsertResult tells whether UpsertFile changed anything.
type UpsertResult int

const (
	FileUnchanged UpsertResult = iota
	FileCreated
	FileUpdated
)

func (r UpsertResult) String() string {
	switch r {
	case FileCreated:
		return "created"
	case FileUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Remote defines what the pipeline needs from GitHub.
type Remote interface {
	RepositoryInfo(ctx context.Context, owner, name, branch string) (RepositoryInfo, error)
	UpsertFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) (UpsertResult, error)
}

// GitHubGateway is the concrete implementation of the Remote interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *zap.Logger
}

// repositoryInfoQuery fetches visibility and branch information in one round trip.
type repositoryInfoQuery struct {
	Repository struct {
		NameWithOwner    string
		IsPrivate        bool
		IsArchived       bool
		DefaultBranchRef *struct {
			Name string
		}
		Ref *struct {
			Name string
		} `graphql:"ref(qualifiedName: $branch)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway creates a gateway that authenticates with token and waits
// out secondary rate limits instead of failing.
func NewGitHubGateway(token string, logger *zap.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(10*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// RepositoryInfo looks up owner/name and whether branch exists on it.
func (g *GitHubGateway) RepositoryInfo(ctx context.Context, owner, name, branch string) (RepositoryInfo, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"branch": githubv4.String("refs/heads/" + branch),
	}

	var q repositoryInfoQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return RepositoryInfo{}, fmt.Errorf("failed to query repository %s/%s: %w", owner, name, err)
	}

	info := RepositoryInfo{
		NameWithOwner: q.Repository.NameWithOwner,
		Private:       q.Repository.IsPrivate,
		Archived:      q.Repository.IsArchived,
		BranchExists:  q.Repository.Ref != nil,
	}
	if q.Repository.DefaultBranchRef != nil {
		info.DefaultBranch = q.Repository.DefaultBranchRef.Name
	}
	g.logger.Debug("fetched repository info",
		zap.String("repository", info.NameWithOwner),
		zap.Bool("private", info.Private),
		zap.Bool("branch_exists", info.BranchExists),
	)
	return info, nil
}

// UpsertFile writes content to path on branch through the contents API.
// Identical content is left alone so reruns produce no empty commits.
func (g *GitHubGateway) UpsertFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) (UpsertResult, error) {
	existing, _, resp, err := g.restClient.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: branch})
	notFound := resp != nil && resp.StatusCode == http.StatusNotFound
	if err != nil && !notFound {
		return FileUnchanged, fmt.Errorf("failed to get %s from %s/%s: %w", path, owner, repo, err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(branch),
	}

	if notFound || existing == nil {
		if _, _, err := g.restClient.Repositories.CreateFile(ctx, owner, repo, path, opts); err != nil {
			return FileUnchanged, fmt.Errorf("failed to create %s in %s/%s: %w", path, owner, repo, err)
		}
		g.logger.Info("created file", zap.String("path", path), zap.String("repository", owner+"/"+repo))
		return FileCreated, nil
	}

	current, err := existing.GetContent()
	if err != nil {
		return FileUnchanged, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if current == string(content) {
		g.logger.Info("file unchanged, skipping commit", zap.String("path", path))
		return FileUnchanged, nil
	}

	opts.SHA = github.String(existing.GetSHA())
	if _, _, err := g.restClient.Repositories.UpdateFile(ctx, owner, repo, path, opts); err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusConflict {
			return FileUnchanged, fmt.Errorf("%s changed on %s while publishing: %w", path, branch, err)
		}
		return FileUnchanged, fmt.Errorf("failed to update %s in %s/%s: %w", path, owner, repo, err)
	}
	g.logger.Info("updated file", zap.String("path", path), zap.String("repository", owner+"/"+repo))
	return FileUpdated, nil
}
