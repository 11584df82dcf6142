package cmd

import (
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the 'check' command.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that pgbranch is ready to use",
		Long: `Run diagnostics against the current setup: configuration validity,
PostgreSQL connectivity, template database, CREATEDB permission, the
git repository, and the installed hooks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(false, true)
			if err != nil {
				return err
			}
			// Failed diagnostics are reported in the output; the command
			// itself still succeeds.
			_, err = svc.Check(cmd.Context())
			return err
		},
	}
}
