package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgbranch/pgbranch/internal/pkg/git"
)

// NewInstallHooksCmd creates the 'install-hooks' command.
func NewInstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-hooks",
		Short: "Install git hooks for automatic branch switching",
		Long: `Install post-checkout and post-merge hooks that call 'pgbranch git-hook'
after every checkout or merge. Existing hooks written by other tools are
left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := git.NewClient().InstallHooks(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Installed git hooks")
			return nil
		},
	}
}

// NewUninstallHooksCmd creates the 'uninstall-hooks' command.
func NewUninstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-hooks",
		Short: "Remove the git hooks installed by pgbranch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := git.NewClient().UninstallHooks(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Uninstalled git hooks")
			return nil
		},
	}
}

// NewGitHookCmd creates the 'git-hook' command invoked by the installed
// hooks. It stays quiet and non-fatal wherever possible so a database
// problem never blocks a git checkout.
func NewGitHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "git-hook",
		Short:  "Handle a git hook invocation (internal)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, false)
			if err != nil {
				return err
			}
			return svc.GitHook(cmd.Context())
		},
	}
}
