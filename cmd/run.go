package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/artifact"
	"github.com/naka-gawa/profile-stats/internal/config"
	"github.com/naka-gawa/profile-stats/internal/gateway"
	"github.com/naka-gawa/profile-stats/internal/usecase"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the whole pipeline locally",
	Long: `Validates the configuration and tokens, clones and extracts every repository
in parallel, aggregates, appends history, renders, and with --publish commits
the outputs. Repositories that fail to clone or extract are reported and left out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env, err := config.LoadEnv(envFile)
		if err != nil {
			return err
		}
		if err := env.RequireTokens(cfg.Repositories); err != nil {
			return err
		}

		reposDir := env.ReposDir
		if reposDir == "" {
			tmp, err := os.MkdirTemp("", "profile-stats-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmp)
			reposDir = tmp
		}

		execRunner := gateway.NewExecRunner(logger)
		extractor, err := newExtractor(cfg, execRunner)
		if err != nil {
			return err
		}
		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		jobs := make([]usecase.Job, 0, len(cfg.Repositories))
		for _, repo := range cfg.Repositories {
			jobs = append(jobs, usecase.Job{
				Target: usecase.Target{
					Name:        repo.Name,
					DisplayName: repo.DisplayName,
					Branch:      repo.Branch,
					Path:        filepath.Join(reposDir, repo.Name),
				},
				CloneURL: gateway.CloneURL(repo.Organization, repo.Name, env.TokenFor(repo.TokenType)),
			})
		}

		cloner := gateway.NewCloner(execRunner, cfg.Processing.CloneAttempts, cfg.Processing.CloneBackoff, logger)
		outcomes := usecase.NewRunner(cloner, extractor, cfg.Processing.Workers, logger).ExtractAll(ctx, jobs)
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, outcome := range outcomes {
			if !outcome.OK() {
				continue
			}
			if err := store.WriteRecord(cfg.Repositories[i].ArtifactName, *outcome.Record); err != nil {
				return err
			}
		}

		u := usecase.NewAggregator(logger).AggregateOutcomes(outcomes)
		if err := artifact.WriteUnified(unifiedPath(cfg), u); err != nil {
			return err
		}
		if err := appendHistory(cfg, u); err != nil {
			return err
		}
		for _, f := range u.Failures {
			logger.Warn("repository left out", zap.String("repository", f.Repository), zap.String("stage", f.Stage), zap.String("reason", f.Reason))
		}

		files, err := renderOutputs(cfg, u)
		if err != nil {
			return err
		}
		publish, _ := cmd.Flags().GetBool("publish")
		publisher, err := newPublisher(cfg, env, !publish)
		if err != nil {
			return err
		}
		return publisher.Publish(ctx, files)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("publish", false, "Commit the outputs to the profile repository")
}
