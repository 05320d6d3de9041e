package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrel-search/kestrel/internal/engine"
	"github.com/kestrel-search/kestrel/internal/search"
)

type searchOptions struct {
	limit       int
	format      string
	keywordOnly bool
	explain     bool
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long: `Search indexed documents with hybrid retrieval.

Keyword and vector results are fused with Reciprocal Rank Fusion;
query keywords are expanded with curated and algorithmic synonyms
before the keyword pass.

Examples:
  kestrel search "how to configure authentication"
  kestrel search "connection pool" --limit 5 --explain
  kestrel search "deploy" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			query := strings.Join(args, " ")
			res, err := eng.Query(cmd.Context(), query, engine.QueryOptions{
				Limit:       opts.limit,
				KeywordOnly: opts.keywordOnly,
			})
			if err != nil {
				return err
			}
			return renderSearch(cmd, res, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.keywordOnly, "keyword-only", false, "Skip the vector backend")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show analysis, expansion, and per-backend ranks")

	return cmd
}

func renderSearch(cmd *cobra.Command, res *engine.Result, opts searchOptions) error {
	out := cmd.OutOrStdout()

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if opts.explain {
		fmt.Fprintf(out, "Intent: %s (specificity %.2f)\n", res.Analysis.Intent, res.Analysis.Specificity)
		fmt.Fprintf(out, "Keywords: %s\n", strings.Join(res.Analysis.Keywords, ", "))
		if len(res.Expanded.ExpandedKeywords) > len(res.Analysis.Keywords) {
			fmt.Fprintf(out, "Expanded: %s\n", strings.Join(res.Expanded.ExpandedKeywords, ", "))
		}
		fmt.Fprintln(out)
	}

	resp := res.Response
	if resp.Degradation != search.DegradationFull {
		fmt.Fprintf(out, "(degraded: %s)\n", resp.Degradation)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}

	for i, r := range resp.Results {
		fmt.Fprintf(out, "%2d. %s  (score %.4f)\n", i+1, r.DocID, r.FusedScore)
		if opts.explain {
			fmt.Fprintf(out, "    keyword rank %d, vector rank %d\n", r.Ranks.Keyword, r.Ranks.Vector)
		}
	}
	fmt.Fprintf(out, "\n%d result(s) in %s", len(resp.Results), resp.Elapsed.Round(0))
	if resp.FromCache {
		fmt.Fprint(out, " (cached)")
	}
	fmt.Fprintln(out)
	return nil
}
