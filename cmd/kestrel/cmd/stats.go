package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and query statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			stats, err := eng.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(out, "Documents:        %d\n", stats.Documents)
			fmt.Fprintf(out, "Vectors:          %d\n", stats.Vectors)
			fmt.Fprintf(out, "Vector breaker:   %s\n", stats.BreakerState)
			fmt.Fprintf(out, "Queries tracked:  %d\n", stats.History.TotalQueries)
			fmt.Fprintf(out, "Unique queries:   %d\n", stats.History.UniqueQueries)
			fmt.Fprintf(out, "Zero-result rate: %.1f%%\n", stats.History.ZeroResultRate*100)
			if stats.History.TotalQueries > 0 {
				fmt.Fprintf(out, "Avg results:      %.1f\n", stats.History.AverageResults)
				fmt.Fprintf(out, "Avg duration:     %s\n", stats.History.AverageDuration.Round(0))
			}
			if len(stats.History.ByIntent) > 0 {
				fmt.Fprintln(out, "By intent:")
				for intent, count := range stats.History.ByIntent {
					fmt.Fprintf(out, "  %-14s %d\n", intent, count)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
