package cmd

import (
	"github.com/spf13/cobra"
)

// NewCreateCmd creates the 'create' command.
func NewCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <branch-name>",
		Short: "Create a database branch",
		Long: `Create a new PostgreSQL database for the given branch by cloning the
template database. The branch name is sanitized into a valid database
identifier, so git-style names like feature/auth work directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			return svc.Create(cmd.Context(), args[0])
		},
	}
}

// NewDeleteCmd creates the 'delete' command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <branch-name>",
		Short: "Delete a database branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			return svc.Delete(cmd.Context(), args[0])
		},
	}
}

// NewListCmd creates the 'list' command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List database branches",
		Long: `List all database branches along with the main template database.
The active branch for this checkout is marked. When the database is
unreachable the listing falls back to the locally recorded state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			return svc.List(cmd.Context())
		},
	}
}

// NewCleanupCmd creates the 'cleanup' command.
func NewCleanupCmd() *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old database branches",
		Long: `Drop the oldest database branches, keeping only the most recent ones.
The keep count defaults to behavior.max_branches from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			var keep *int
			if cmd.Flags().Changed("max-count") {
				n, _ := cmd.Flags().GetInt("max-count")
				keep = &n
			}
			return svc.Cleanup(cmd.Context(), keep)
		},
	}

	cleanupCmd.Flags().IntP("max-count", "m", 0, "Number of branches to keep (default: behavior.max_branches)")
	return cleanupCmd
}
