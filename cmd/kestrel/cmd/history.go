package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect query history",
	}
	cmd.AddCommand(newHistoryListCmd(flags))
	cmd.AddCommand(newHistoryZeroCmd(flags))
	cmd.AddCommand(newHistoryClearCmd(flags))
	return cmd
}

func newHistoryListCmd(flags *rootFlags) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent queries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.RecentHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No history.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-12s  %3d results  %s\n",
					e.ExecutedAt.Format("2006-01-02 15:04:05"), e.Intent, e.ResultCount, e.Query)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func newHistoryZeroCmd(flags *rootFlags) *cobra.Command {
	var limit int
	var format string
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "zero",
		Short: "Show queries that found nothing, most frequent first",
		Long: `Show aggregated zero-result queries.

These are the content gaps: questions people asked that the
documentation could not answer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			zeroes, err := eng.ZeroResultQueries(cmd.Context(), from, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(zeroes)
			}

			if len(zeroes) == 0 {
				fmt.Fprintln(out, "No zero-result queries.")
				return nil
			}
			for _, z := range zeroes {
				fmt.Fprintf(out, "%4dx  %s  (last %s)\n",
					z.Occurrences, z.Query, z.LastSeen.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum queries to show")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().DurationVar(&since, "since", 0, "Only count occurrences within this window (e.g. 168h)")
	return cmd
}

func newHistoryClearCmd(flags *rootFlags) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete history entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			var cutoff time.Time
			if olderThan > 0 {
				cutoff = time.Now().Add(-olderThan)
			}
			if err := eng.ClearHistory(cmd.Context(), cutoff); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete entries older than this (e.g. 720h); default deletes all")
	return cmd
}
