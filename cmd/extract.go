package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/config"
	"github.com/naka-gawa/profile-stats/internal/domain"
	"github.com/naka-gawa/profile-stats/internal/gateway"
	"github.com/naka-gawa/profile-stats/internal/usecase"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extracts statistics for one checked-out repository",
	Long: `Runs the line counter and git fame over the working copy at REPO_PATH and
writes the artifact for the repository named by REPO_NAME.

An extraction failure is logged and leaves no artifact, but exits 0 so the
remaining repositories of a CI matrix still get aggregated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env, err := config.LoadEnv(envFile)
		if err != nil {
			return err
		}
		if env.RepoName == "" {
			return domain.NewError(domain.ErrConfiguration, "environment", fmt.Errorf("REPO_NAME is not set"))
		}
		repo, ok := cfg.Repository(env.RepoName)
		if !ok {
			return domain.NewError(domain.ErrConfiguration, cfgFile, fmt.Errorf("repository %q is not configured", env.RepoName))
		}

		displayName := repo.DisplayName
		if env.DisplayName != "" {
			displayName = env.DisplayName
		}

		extractor, err := newExtractor(cfg, gateway.NewExecRunner(logger))
		if err != nil {
			return err
		}
		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		outcome := extractor.Extract(cmd.Context(), usecase.Target{
			Name:        repo.Name,
			DisplayName: displayName,
			Branch:      repo.Branch,
			Path:        env.RepoPath,
		})
		if !outcome.OK() {
			logger.Warn("no artifact written", zap.String("repository", repo.Name), zap.Error(outcome.Err))
			return nil
		}
		return store.WriteRecord(repo.ArtifactName, *outcome.Record)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
