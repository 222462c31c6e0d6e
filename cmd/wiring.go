package cmd

import (
	"errors"
	"path/filepath"

	"github.com/naka-gawa/profile-stats/internal/artifact"
	"github.com/naka-gawa/profile-stats/internal/classifier"
	"github.com/naka-gawa/profile-stats/internal/config"
	"github.com/naka-gawa/profile-stats/internal/domain"
	"github.com/naka-gawa/profile-stats/internal/gateway"
	"github.com/naka-gawa/profile-stats/internal/usecase"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded configuration")
	return cfg, nil
}

func newStore(cfg *config.Config) (*artifact.Store, error) {
	return artifact.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.StatsSuffix, logger)
}

func unifiedPath(cfg *config.Config) string {
	return filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.UnifiedFile)
}

func historyPath(cfg *config.Config) string {
	return filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.HistoryFile)
}

func exclusions(cfg *config.Config) gateway.Exclusions {
	return gateway.Exclusions{
		Dirs:  cfg.Processing.ExcludeDirs,
		Exts:  cfg.Processing.ExcludeExts,
		Files: cfg.Processing.ExcludeFiles,
	}
}

func newExtractor(cfg *config.Config, runner gateway.CommandRunner) (*usecase.Extractor, error) {
	cls, err := classifier.New(cfg.AuthorPatterns.Primary, cfg.AuthorPatterns.Bots)
	if err != nil {
		return nil, err
	}

	overrides := gateway.NewLanguageOverrides(cfg.Processing.LanguageOverrides)
	var counter usecase.LineCounter
	switch cfg.Processing.LineCounter {
	case config.CounterEnry:
		counter = gateway.NewEnryCounter(exclusions(cfg), overrides, logger)
	default:
		counter = gateway.NewClocCounter(runner, exclusions(cfg), overrides, logger)
	}

	extractor := usecase.NewExtractor(counter, gateway.NewFameReader(runner, logger), cls, cfg.Processing.Timeout, logger)
	if cfg.Processing.DetectTechnologies {
		extractor.WithDetector(gateway.NewManifestDetector(exclusions(cfg), logger))
	}
	return extractor, nil
}

// renderOutputs renders the README and chart for u. History feeds the
// optional growth section; a missing history file just omits it.
func renderOutputs(cfg *config.Config, u domain.UnifiedStatistics) ([]usecase.OutputFile, error) {
	points, err := artifact.ReadHistory(historyPath(cfg))
	if err != nil {
		return nil, err
	}
	growth := usecase.GrowthOver(points, cfg.History.GrowthWindowDays, u.GeneratedAt)

	chartLink, err := filepath.Rel(filepath.Dir(cfg.Output.ReadmePath), cfg.Output.ChartPath)
	if err != nil {
		chartLink = cfg.Output.ChartPath
	}

	renderer := usecase.NewRenderer(usecase.RendererOptions{
		Title:      cfg.Report.Title,
		DateFormat: cfg.Report.DateFormat,
		ChartLink:  filepath.ToSlash(chartLink),

		TopLanguages:      cfg.Report.TopLanguages,
		ExcludedLanguages: cfg.Report.ExcludedLanguages,
	}, logger)
	markdown, err := renderer.RenderMarkdown(u, growth)
	if err != nil {
		return nil, err
	}

	chart := usecase.NewChartRenderer(usecase.ChartOptions{
		TopN:     cfg.Report.TopLanguages,
		Excluded: cfg.Report.ExcludedLanguages,
	}, logger)

	return []usecase.OutputFile{
		{Path: cfg.Output.ReadmePath, Content: []byte(markdown)},
		{Path: cfg.Output.ChartPath, Content: []byte(chart.RenderSVG(u.Languages))},
	}, nil
}

// appendHistory records u in the history file.
func appendHistory(cfg *config.Config, u domain.UnifiedStatistics) error {
	path := historyPath(cfg)
	points, err := artifact.ReadHistory(path)
	if err != nil {
		return err
	}
	points = usecase.AppendPoint(points, domain.PointFrom(u, u.GeneratedAt), cfg.History.RetentionDays)
	return artifact.WriteHistory(path, points)
}

// newPublisher returns a publisher that commits through GitHub unless dryRun
// is set or no publish target is configured.
func newPublisher(cfg *config.Config, env *config.Env, dryRun bool) (*usecase.Publisher, error) {
	target := usecase.PublishTarget{
		Owner:   cfg.Publish.Owner,
		Repo:    cfg.Publish.Repo,
		Branch:  cfg.Publish.Branch,
		Message: cfg.Output.CommitMessage,
	}
	if dryRun || !cfg.Publish.Enabled() {
		return usecase.NewPublisher(nil, target, logger), nil
	}

	token := env.PublishingToken()
	if token == "" {
		return nil, domain.NewError(domain.ErrConfiguration, "environment",
			errors.New("publishing needs PUBLISH_TOKEN or PERSONAL_REPOS_TOKEN"))
	}
	gw, err := gateway.NewGitHubGateway(token, logger)
	if err != nil {
		return nil, err
	}
	return usecase.NewPublisher(gw, target, logger), nil
}
