package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wagiedev/subagent-go/internal/usage"
)

func newUsageCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Summarize the usage ledger per model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.ledgerStore()
			if store == nil {
				return fmt.Errorf("no ledger_path configured")
			}

			entries, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load ledger %s: %w", store.Path(), err)
			}

			summary := usage.Summarize(entries)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(summary)
			}

			return printSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}

func printSummary(w io.Writer, s usage.Summary) error {
	if s.Tasks == 0 {
		_, err := fmt.Fprintln(w, "No usage recorded.")

		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	names := make([]string, 0, len(s.ByModel))
	for name := range s.ByModel {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, usage.Format(s.ByModel[name]))
	}

	fmt.Fprintf(tw, "total (%d tasks)\t%s\n", s.Tasks, usage.Format(s.Total))

	return tw.Flush()
}
