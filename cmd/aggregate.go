package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/artifact"
	"github.com/naka-gawa/profile-stats/internal/usecase"
)

var aggregateCmd = &cobra.Command{
	Use:     "aggregate",
	Aliases: []string{"stats"},
	Short:   "Aggregates repository artifacts into unified statistics",
	Long: `Loads the artifact of every configured repository, in configuration order,
and writes the unified statistics document. Missing or invalid artifacts are
recorded as failures and left out of the totals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		outcomes := make([]usecase.Outcome, 0, len(cfg.Repositories))
		for _, repo := range cfg.Repositories {
			record, err := store.ReadRecord(repo.ArtifactName)
			if err != nil {
				logger.Warn("skipping artifact", zap.String("repository", repo.Name), zap.Error(err))
				outcomes = append(outcomes, usecase.Outcome{Name: repo.Name, Err: err})
				continue
			}
			outcomes = append(outcomes, usecase.Outcome{Name: repo.Name, Record: &record})
		}

		u := usecase.NewAggregator(logger).AggregateOutcomes(outcomes)

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = unifiedPath(cfg)
		}
		if err := artifact.WriteUnified(output, u); err != nil {
			return err
		}
		logger.Info("wrote unified statistics", zap.String("path", output))

		if withHistory, _ := cmd.Flags().GetBool("history"); withHistory {
			return appendHistory(cfg, u)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	aggregateCmd.Flags().StringP("output", "o", "", "Path of the unified statistics document (default <artifacts.dir>/<artifacts.unified_file>)")
	aggregateCmd.Flags().Bool("history", false, "Append a point to the history file")
}
