package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSuggestCmd(flags *rootFlags) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Autocomplete a query prefix",
		Long: `Suggest query completions for a prefix.

Candidates come from past successful queries, document headings,
domain terminology, and recurring content phrases.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			suggestions, err := eng.Suggest(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(suggestions)
			}

			if len(suggestions) == 0 {
				fmt.Fprintln(out, "No suggestions.")
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintf(out, "%-40s  %s (%.3f)\n", s.Text, s.Source, s.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of suggestions (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
