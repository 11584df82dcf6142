// Package cmd contains the CLI command definitions for pgbranch.
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgbranch/pgbranch/internal/app"
	"github.com/pgbranch/pgbranch/internal/pkg/config"
	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
	"github.com/pgbranch/pgbranch/internal/pkg/git"
	"github.com/pgbranch/pgbranch/internal/pkg/state"
	"github.com/pgbranch/pgbranch/internal/pkg/ui"
)

// NewRootCmd creates the root command for the pgbranch CLI.
func NewRootCmd(version, commitHash, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgbranch",
		Short: "PostgreSQL database branching for git workflows",
		Long: `pgbranch keeps a PostgreSQL database per git branch. It clones the
template database when you switch to a new branch and tracks which
database belongs to the current checkout.

Install the git hooks once with 'pgbranch install-hooks' and every
checkout or merge will switch the database branch automatically.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				apperrors.SetVerbose(true)
			}
		},
	}

	rootCmd.SetVersionTemplate(`pgbranch {{.Version}}
Commit: ` + commitHash + `
Built:  ` + date + "\n")

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(NewCreateCmd())
	rootCmd.AddCommand(NewDeleteCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewCleanupCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewInstallHooksCmd())
	rootCmd.AddCommand(NewUninstallHooksCmd())
	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewGitHookCmd())
	rootCmd.AddCommand(NewTemplatesCmd())
	rootCmd.AddCommand(NewTestPostCommandsCmd())
	rootCmd.AddCommand(NewSwitchCmd())
	rootCmd.AddCommand(NewTestSwitchCmd())
	rootCmd.AddCommand(NewHistoryCmd())

	return rootCmd
}

// buildService assembles the layered configuration and the collaborators
// behind a Service. When requireConfig is set, a missing config file is
// fatal with a pointer at 'pgbranch init'.
func buildService(requireConfig, interactive bool) (*app.Service, error) {
	base, configPath, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if requireConfig && configPath == "" {
		return nil, apperrors.NewMissingConfigError()
	}

	// The overlay sits next to the discovered config file, or in the
	// working directory when running on defaults.
	overlayDir := "."
	if configPath != "" {
		overlayDir = filepath.Dir(configPath)
	}
	local, err := config.LoadLocalOverlay(overlayDir)
	if err != nil {
		return nil, err
	}

	env, err := config.LoadEnvOverlay(nil)
	if err != nil {
		return nil, err
	}

	store, err := state.NewDefaultFileStore()
	if err != nil {
		return nil, err
	}

	var uiManager ui.Manager
	if interactive {
		uiManager = ui.NewDefaultManager(true)
	} else {
		uiManager = ui.NewNonInteractiveManager()
	}

	eff := config.Resolve(base, local, env)
	return app.NewService(eff, configPath, git.NewClient(), store, uiManager), nil
}
