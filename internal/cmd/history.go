package cmd

import (
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the 'history' command.
func NewHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent branch switches",
		Long: `Show the most recent database branch switches recorded on this
machine, across all checkouts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(false, true)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return svc.History(limit)
		},
	}

	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
	return historyCmd
}
