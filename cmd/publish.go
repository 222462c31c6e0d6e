package cmd

import (
	"github.com/spf13/cobra"

	"github.com/naka-gawa/profile-stats/internal/artifact"
	"github.com/naka-gawa/profile-stats/internal/config"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Renders the outputs and commits them to the profile repository",
	Long: `Renders the README and chart from the unified statistics document and
commits each file that changed to publish.owner/publish.repo. With --dry-run,
or when no publish target is configured, the files are only written locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env, err := config.LoadEnv(envFile)
		if err != nil {
			return err
		}

		u, err := artifact.ReadUnified(unifiedPath(cfg))
		if err != nil {
			return err
		}
		files, err := renderOutputs(cfg, u)
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		publisher, err := newPublisher(cfg, env, dryRun)
		if err != nil {
			return err
		}
		return publisher.Publish(cmd.Context(), files)
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().Bool("dry-run", false, "Write the files without committing them")
}
