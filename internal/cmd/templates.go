package cmd

import (
	"github.com/spf13/cobra"
)

// NewTemplatesCmd creates the 'templates' command.
func NewTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates [branch-name]",
		Short: "Show template variables available to post-commands",
		Long: `Print the placeholders post-commands may use and the values they
would take for the given branch. Without a branch name an example
branch is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			branch := "feature/example-branch"
			if len(args) == 1 {
				branch = args[0]
			}
			svc.Templates(branch)
			return nil
		},
	}
}

// NewTestPostCommandsCmd creates the 'test-post-commands' command.
func NewTestPostCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-post-commands <branch-name>",
		Short: "Run the configured post-commands without database operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			return svc.TestPostCommands(cmd.Context(), args[0])
		},
	}
}
