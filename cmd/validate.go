package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/profile-stats/internal/config"
	"github.com/naka-gawa/profile-stats/internal/gateway"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks the configuration and tokens",
	Long: `Validates the configuration file and checks that every repository has a
token for its access scope. With --remote, each repository is also looked up on
GitHub to confirm it exists, its visibility matches the token type, and the
configured branch is present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := loadConfig()
		if err != nil {
			errColor.Fprintf(out, "✗ configuration is invalid:\n%v\n", err)
			return err
		}
		okColor.Fprintf(out, "✓ configuration OK (%d repositories)\n", len(cfg.Repositories))

		env, err := config.LoadEnv(envFile)
		if err != nil {
			return err
		}
		if err := env.RequireTokens(cfg.Repositories); err != nil {
			errColor.Fprintf(out, "✗ %v\n", err)
			return err
		}
		okColor.Fprintln(out, "✓ tokens present")

		if remote, _ := cmd.Flags().GetBool("remote"); !remote {
			return nil
		}

		gateways := map[config.AccessScope]repositoryInspector{}
		inspectorFor := func(scope config.AccessScope) (repositoryInspector, error) {
			if gw, ok := gateways[scope]; ok {
				return gw, nil
			}
			gw, err := gateway.NewGitHubGateway(env.TokenFor(scope), logger)
			if err != nil {
				return nil, err
			}
			gateways[scope] = gw
			return gw, nil
		}

		if failed := checkRepositories(cmd.Context(), cfg.Repositories, inspectorFor, out); failed > 0 {
			return fmt.Errorf("%d repositories failed remote validation", failed)
		}
		okColor.Fprintln(out, "✓ all repositories reachable")
		return nil
	},
}

type repositoryInspector interface {
	RepositoryInfo(ctx context.Context, owner, name, branch string) (gateway.RepositoryInfo, error)
}

// checkRepositories prints one line per problem and returns how many
// repositories have errors. Warnings do not count.
func checkRepositories(ctx context.Context, repos []config.Repository, inspectorFor func(config.AccessScope) (repositoryInspector, error), out io.Writer) int {
	failed := 0
	for _, repo := range repos {
		slug := repo.Organization + "/" + repo.Name

		inspector, err := inspectorFor(repo.TokenType)
		if err != nil {
			errColor.Fprintf(out, "✗ %s: %v\n", slug, err)
			failed++
			continue
		}
		info, err := inspector.RepositoryInfo(ctx, repo.Organization, repo.Name, repo.Branch)
		if err != nil {
			errColor.Fprintf(out, "✗ %s: %v\n", slug, err)
			failed++
			continue
		}

		if !info.BranchExists {
			errColor.Fprintf(out, "✗ %s: branch %q does not exist\n", slug, repo.Branch)
			failed++
			continue
		}
		if info.Private && repo.TokenType == config.ScopePersonal {
			warnColor.Fprintf(out, "! %s: repository is private but uses the %s token\n", slug, repo.TokenType)
		}
		if info.DefaultBranch != "" && info.DefaultBranch != repo.Branch {
			warnColor.Fprintf(out, "! %s: configured branch %q is not the default branch %q\n", slug, repo.Branch, info.DefaultBranch)
		}
		if info.Archived {
			warnColor.Fprintf(out, "! %s: repository is archived\n", slug)
		}
		okColor.Fprintf(out, "✓ %s\n", slug)
	}
	return failed
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("remote", false, "Also check every repository on GitHub")
}
