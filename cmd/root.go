// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	cfgFile string
	envFile string
	verbose bool
	logger  = zap.NewNop()

	buildLogger = newLogger
)

var rootCmd = &cobra.Command{
	Use:   "profile-stats",
	Short: "A CLI tool to build a GitHub profile README from code statistics.",
	Long: `profile-stats extracts lines of code, commits, files and languages from a
set of repositories, splits them by author (you, bots, everyone else), and renders
the result as a profile README with badges, tables and an SVG language chart.

Each stage can run on its own (extract, aggregate, render, publish) so a CI
matrix can fan out per repository, or all at once with "run".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := buildLogger(verbose, term.IsTerminal(int(os.Stderr.Fd())))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := executeContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// executeContext runs the root command and flushes the logger on every path.
// Cobra skips post-run hooks when a command fails.
func executeContext(ctx context.Context) error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

// newLogger builds a console logger for interactive use and a JSON logger
// everywhere else, so CI logs stay machine-readable.
func newLogger(verbose, interactive bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if interactive {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with tokens for local runs; ignored when missing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")
}
