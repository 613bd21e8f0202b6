package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"personakit/internal/store"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <persona-name>",
		Short: "Show recorded builds of a persona from the build ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := store.Open(a.cfg.Resolved().Ledger.Path)
			if err != nil {
				return err
			}
			defer ledger.Close()

			records, err := ledger.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No builds recorded for %s\n", args[0])
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BUILD\tBUILT AT\tTOOL\tMODULES\tPERSONA DIGEST")
			for _, r := range records {
				digest := r.PersonaDigest
				if len(digest) > 12 {
					digest = digest[:12]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.BuiltAt, r.ToolVersion, len(r.Modules), digest)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of builds to show (0 for all)")
	return cmd
}
