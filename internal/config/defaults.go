package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultTimeout          = 120 * time.Second
	DefaultCloneAttempts    = 3
	DefaultCloneBackoff     = 5 * time.Second
	DefaultWorkers          = 4
	DefaultTopLanguages     = 10
	DefaultRetentionDays    = 365
	DefaultGrowthWindowDays = 30
	DefaultTitle            = "Unified Code Statistics"
	DefaultDateFormat       = "January 2, 2006 at 15:04 UTC"
	DefaultCommitMessage    = "chore: update profile statistics"
)

// DefaultExcludeDirs are never counted: VCS metadata, dependencies, build output.
var DefaultExcludeDirs = []string{
	".git", "node_modules", "vendor", "dist", "build", "out", "target",
	".venv", "venv", "__pycache__", ".next", ".nuxt", "coverage", ".idea", ".vscode",
}

// DefaultExcludeExts are binary assets and generated files, without the dot.
var DefaultExcludeExts = []string{
	"png", "jpg", "jpeg", "gif", "ico", "svg", "webp", "pdf",
	"woff", "woff2", "ttf", "eot", "lock", "map", "min.js", "min.css",
}

// DefaultExcludeFiles are lockfiles matched by exact base name.
var DefaultExcludeFiles = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "poetry.lock",
	"Pipfile.lock", "Cargo.lock", "go.sum", "composer.lock", "Gemfile.lock",
}

// DefaultExcludedLanguages are categories left out of the language chart.
var DefaultExcludedLanguages = []string{
	"JSON", "YAML", "TOML", "INI", "XML", "Markdown", "Text", "SVG",
	"reStructuredText", "AsciiDoc", "BibTeX", "CSV", "Unknown",
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("processing.timeout", DefaultTimeout)
	v.SetDefault("processing.line_counter", CounterCloc)
	v.SetDefault("processing.exclude_dirs", DefaultExcludeDirs)
	v.SetDefault("processing.exclude_exts", DefaultExcludeExts)
	v.SetDefault("processing.exclude_files", DefaultExcludeFiles)
	v.SetDefault("processing.clone_attempts", DefaultCloneAttempts)
	v.SetDefault("processing.clone_backoff", DefaultCloneBackoff)
	v.SetDefault("processing.workers", DefaultWorkers)
	v.SetDefault("processing.detect_technologies", true)

	v.SetDefault("report.title", DefaultTitle)
	v.SetDefault("report.date_format", DefaultDateFormat)
	v.SetDefault("report.top_languages", DefaultTopLanguages)
	v.SetDefault("report.excluded_languages", DefaultExcludedLanguages)

	v.SetDefault("artifacts.dir", "repo-stats")
	v.SetDefault("artifacts.stats_suffix", "_stats.json")
	v.SetDefault("artifacts.unified_file", "unified_stats.json")
	v.SetDefault("artifacts.history_file", "history.json")

	v.SetDefault("output.readme_path", "README.md")
	v.SetDefault("output.chart_path", "assets/language_stats.svg")
	v.SetDefault("output.commit_message", DefaultCommitMessage)

	v.SetDefault("publish.branch", "main")

	v.SetDefault("history.retention_days", DefaultRetentionDays)
	v.SetDefault("history.growth_window_days", DefaultGrowthWindowDays)
}
