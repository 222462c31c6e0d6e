// Package config loads and validates the profile-stats configuration file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// extensionPattern matches a file extension accepted in language_overrides.
var extensionPattern = regexp.MustCompile(`^\.?[A-Za-z0-9_+-]+$`)

// envPrefix is the environment variable prefix for overriding scalar settings.
const envPrefix = "PROFILE_STATS"

// AccessScope selects which token is used to reach a repository.
type AccessScope string

const (
	ScopePersonal AccessScope = "personal"
	ScopePrivate  AccessScope = "private"
)

// Valid reports whether s is a recognised access scope.
func (s AccessScope) Valid() bool {
	return s == ScopePersonal || s == ScopePrivate
}

// Line counter backends.
const (
	CounterCloc = "cloc"
	CounterEnry = "enry"
)

// Config is the read-only process configuration. It is loaded once and passed
// to every component that needs it.
type Config struct {
	Repositories   []Repository   `mapstructure:"repositories" yaml:"repositories"`
	AuthorPatterns AuthorPatterns `mapstructure:"author_patterns" yaml:"author_patterns"`
	Processing     Processing     `mapstructure:"processing" yaml:"processing"`
	Report         Report         `mapstructure:"report" yaml:"report"`
	Artifacts      Artifacts      `mapstructure:"artifacts" yaml:"artifacts"`
	Output         Output         `mapstructure:"output" yaml:"output"`
	Publish        Publish        `mapstructure:"publish" yaml:"publish"`
	History        History        `mapstructure:"history" yaml:"history"`
}

// Repository describes one repository to analyze.
type Repository struct {
	Name         string      `mapstructure:"name" yaml:"name"`
	DisplayName  string      `mapstructure:"display_name" yaml:"display_name"`
	Branch       string      `mapstructure:"branch" yaml:"branch"`
	ArtifactName string      `mapstructure:"artifact_name" yaml:"artifact_name"`
	Organization string      `mapstructure:"organization" yaml:"organization"`
	TokenType    AccessScope `mapstructure:"token_type" yaml:"token_type"`
}

// AuthorPatterns holds the regex lists used by the author classifier.
type AuthorPatterns struct {
	Primary []string `mapstructure:"primary" yaml:"primary"`
	Bots    []string `mapstructure:"bots" yaml:"bots"`
}

// Processing controls the extraction phase.
type Processing struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LineCounter   string        `mapstructure:"line_counter" yaml:"line_counter"`
	ExcludeDirs   []string      `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	ExcludeExts   []string      `mapstructure:"exclude_exts" yaml:"exclude_exts"`
	ExcludeFiles  []string      `mapstructure:"exclude_files" yaml:"exclude_files"`
	CloneAttempts int           `mapstructure:"clone_attempts" yaml:"clone_attempts"`
	CloneBackoff  time.Duration `mapstructure:"clone_backoff" yaml:"clone_backoff"`
	Workers       int           `mapstructure:"workers" yaml:"workers"`
	// DetectTechnologies scans dependency manifests for the tech stack row.
	DetectTechnologies bool `mapstructure:"detect_technologies" yaml:"detect_technologies"`
	// LanguageOverrides maps a file extension to the language its files
	// are counted as, extending the line counter's vocabulary.
	LanguageOverrides map[string]string `mapstructure:"language_overrides" yaml:"language_overrides,omitempty"`
}

// Report controls markdown and chart formatting.
type Report struct {
	Title             string   `mapstructure:"title" yaml:"title"`
	DateFormat        string   `mapstructure:"date_format" yaml:"date_format"`
	TopLanguages      int      `mapstructure:"top_languages" yaml:"top_languages"`
	ExcludedLanguages []string `mapstructure:"excluded_languages" yaml:"excluded_languages"`
}

// Artifacts controls where intermediate documents live.
type Artifacts struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	StatsSuffix string `mapstructure:"stats_suffix" yaml:"stats_suffix"`
	UnifiedFile string `mapstructure:"unified_file" yaml:"unified_file"`
	HistoryFile string `mapstructure:"history_file" yaml:"history_file"`
}

// Output names the rendered files.
type Output struct {
	ReadmePath    string `mapstructure:"readme_path" yaml:"readme_path"`
	ChartPath     string `mapstructure:"chart_path" yaml:"chart_path"`
	CommitMessage string `mapstructure:"commit_message" yaml:"commit_message"`
}

// Publish names the profile repository the outputs are committed to.
type Publish struct {
	Owner  string `mapstructure:"owner" yaml:"owner"`
	Repo   string `mapstructure:"repo" yaml:"repo"`
	Branch string `mapstructure:"branch" yaml:"branch"`
}

// Enabled reports whether a publish target is configured.
func (p Publish) Enabled() bool {
	return p.Owner != "" && p.Repo != ""
}

// History controls the growth history file.
type History struct {
	RetentionDays    int `mapstructure:"retention_days" yaml:"retention_days"`
	GrowthWindowDays int `mapstructure:"growth_window_days" yaml:"growth_window_days"`
}

// Load reads the configuration file at path, applies defaults and
// environment overrides, and validates the result. Every failure is a
// configuration error.
func Load(path string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, path, fmt.Errorf("read config: %w", err))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, path, fmt.Errorf("unmarshal config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, path, err)
	}

	return &cfg, nil
}

// Validate collects every problem in the configuration into one error.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Repositories) == 0 {
		errs = append(errs, errors.New("no repositories configured"))
	}

	names := make(map[string]int, len(c.Repositories))
	artifacts := make(map[string]int, len(c.Repositories))
	for i, repo := range c.Repositories {
		label := repo.Name
		if label == "" {
			label = fmt.Sprintf("repositories[%d]", i)
		}

		for _, field := range []struct{ key, value string }{
			{"name", repo.Name},
			{"display_name", repo.DisplayName},
			{"branch", repo.Branch},
			{"artifact_name", repo.ArtifactName},
			{"organization", repo.Organization},
			{"token_type", string(repo.TokenType)},
		} {
			if strings.TrimSpace(field.value) == "" {
				errs = append(errs, fmt.Errorf("repository %q: missing required field %s", label, field.key))
			}
		}

		if repo.TokenType != "" && !repo.TokenType.Valid() {
			errs = append(errs, fmt.Errorf("repository %q: invalid token_type %q, must be %q or %q",
				label, repo.TokenType, ScopePersonal, ScopePrivate))
		}

		if repo.Name != "" {
			if prev, ok := names[repo.Name]; ok {
				errs = append(errs, fmt.Errorf("duplicate repository name %q at indexes %d and %d", repo.Name, prev, i))
			} else {
				names[repo.Name] = i
			}
		}
		if repo.ArtifactName != "" {
			if prev, ok := artifacts[repo.ArtifactName]; ok {
				errs = append(errs, fmt.Errorf("duplicate artifact name %q at indexes %d and %d", repo.ArtifactName, prev, i))
			} else {
				artifacts[repo.ArtifactName] = i
			}
		}
	}

	for _, p := range append(append([]string{}, c.AuthorPatterns.Primary...), c.AuthorPatterns.Bots...) {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			errs = append(errs, fmt.Errorf("invalid author pattern %q: %w", p, err))
		}
	}

	if c.Processing.LineCounter != CounterCloc && c.Processing.LineCounter != CounterEnry {
		errs = append(errs, fmt.Errorf("unknown line_counter %q, must be %q or %q",
			c.Processing.LineCounter, CounterCloc, CounterEnry))
	}
	if c.Processing.Timeout <= 0 {
		errs = append(errs, errors.New("processing.timeout must be positive"))
	}
	if c.Processing.CloneAttempts < 1 {
		errs = append(errs, errors.New("processing.clone_attempts must be at least 1"))
	}
	if c.Processing.Workers < 1 {
		errs = append(errs, errors.New("processing.workers must be at least 1"))
	}
	for ext, lang := range c.Processing.LanguageOverrides {
		if !extensionPattern.MatchString(strings.TrimSpace(ext)) {
			errs = append(errs, fmt.Errorf("processing.language_overrides: invalid extension %q", ext))
		}
		if strings.TrimSpace(lang) == "" || strings.Contains(lang, ",") {
			errs = append(errs, fmt.Errorf("processing.language_overrides: invalid language %q for extension %q", lang, ext))
		}
	}
	if c.Report.TopLanguages < 1 {
		errs = append(errs, errors.New("report.top_languages must be positive"))
	}

	return errors.Join(errs...)
}

// Repository returns the repository named name.
func (c *Config) Repository(name string) (Repository, bool) {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo, true
		}
	}
	return Repository{}, false
}
