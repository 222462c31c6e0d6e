package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// Env holds the settings read from the process environment. Tokens never
// appear in the configuration file.
type Env struct {
	PersonalToken string `envconfig:"PERSONAL_REPOS_TOKEN"`
	PrivateToken  string `envconfig:"PRIVATE_REPOS_TOKEN"`
	PublishToken  string `envconfig:"PUBLISH_TOKEN"`

	RepoName    string `envconfig:"REPO_NAME"`
	DisplayName string `envconfig:"DISPLAY_NAME"`
	RepoPath    string `envconfig:"REPO_PATH" default:"repo"`
	ReposDir    string `envconfig:"REPOS_DIR"`
}

// LoadEnv reads Env from the environment. Variables in the dotenv file fill
// in those not already set; a missing file is ignored. An empty path skips it.
func LoadEnv(dotenv string) (*Env, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewError(domain.ErrConfiguration, dotenv, fmt.Errorf("failed to load env file: %w", err))
		}
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "environment", fmt.Errorf("failed to load environment: %w", err))
	}
	return &env, nil
}

// TokenFor returns the token configured for the given access scope.
func (e *Env) TokenFor(scope AccessScope) string {
	switch scope {
	case ScopePersonal:
		return e.PersonalToken
	case ScopePrivate:
		return e.PrivateToken
	default:
		return ""
	}
}

// PublishingToken returns the token used to commit outputs.
func (e *Env) PublishingToken() string {
	if e.PublishToken != "" {
		return e.PublishToken
	}
	return e.PersonalToken
}

// RequireTokens fails when any of repos needs a token that is not set.
// It runs before any network call.
func (e *Env) RequireTokens(repos []Repository) error {
	var errs []error
	for _, repo := range repos {
		if e.TokenFor(repo.TokenType) == "" {
			errs = append(errs, fmt.Errorf("repository %q needs a %s token (%s)",
				repo.Name, repo.TokenType, tokenVariable(repo.TokenType)))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return domain.NewError(domain.ErrConfiguration, "environment", errors.Join(errs...))
}

func tokenVariable(scope AccessScope) string {
	if scope == ScopePrivate {
		return "PRIVATE_REPOS_TOKEN"
	}
	return "PERSONAL_REPOS_TOKEN"
}
