package cmd

import (
	"github.com/spf13/cobra"
)

// NewSwitchCmd creates the 'switch' command.
func NewSwitchCmd() *cobra.Command {
	switchCmd := &cobra.Command{
		Use:   "switch [branch-name]",
		Short: "Switch the active database branch",
		Long: `Switch which database branch this checkout uses. With a branch name
the switch is direct, creating the database branch if needed. Without
arguments an interactive selector is shown. The --template flag
switches back to the main template database.

The switch is recorded locally before any database work, so it takes
effect even when PostgreSQL is unreachable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}

			if template, _ := cmd.Flags().GetBool("template"); template {
				return svc.SwitchToMain(cmd.Context())
			}
			if len(args) == 1 {
				return svc.Switch(cmd.Context(), args[0])
			}
			return svc.InteractiveSwitch(cmd.Context())
		},
	}

	switchCmd.Flags().BoolP("template", "t", false, "Switch back to the main template database")
	return switchCmd
}

// NewTestSwitchCmd creates the 'test-switch' command.
func NewTestSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-switch <branch-name>",
		Short: "Simulate a branch switch without database operations",
		Long: `Show what switching to a branch would do and run the configured
post-commands, without touching local state or PostgreSQL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(true, true)
			if err != nil {
				return err
			}
			return svc.TestSwitch(cmd.Context(), args[0])
		},
	}
}
