package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"samefiles/internal/report"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <report.json>",
		Short: "Print a saved scan report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := report.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report for %s (%s)\n\n", r.Root, r.Created.Format("2006-01-02 15:04:05"))
			report.Print(cmd.OutOrStdout(), r)
			return nil
		},
	}
}
