package cmd

import (
	"github.com/spf13/cobra"

	"github.com/naka-gawa/profile-stats/internal/artifact"
	"github.com/naka-gawa/profile-stats/internal/usecase"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Renders the README and language chart from unified statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		if input == "" {
			input = unifiedPath(cfg)
		}
		u, err := artifact.ReadUnified(input)
		if err != nil {
			return err
		}

		files, err := renderOutputs(cfg, u)
		if err != nil {
			return err
		}
		return usecase.NewPublisher(nil, usecase.PublishTarget{}, logger).Publish(cmd.Context(), files)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("input", "i", "", "Path of the unified statistics document (default <artifacts.dir>/<artifacts.unified_file>)")
}
