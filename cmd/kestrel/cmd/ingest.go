package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrel-search/kestrel/internal/index"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Index documents for retrieval",
		Long: `Index one or more files into the keyword and vector backends.

Markdown files have their title and headings extracted so they can
feed autocomplete. The document ID defaults to the file path.

Examples:
  kestrel ingest docs/auth.md docs/deploy.md
  kestrel ingest --id getting-started README.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != "" && len(args) > 1 {
				return fmt.Errorf("--id requires exactly one file")
			}

			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				doc := buildDocument(path, string(data))
				if id != "" {
					doc.ID = id
				}
				if err := eng.IngestDocument(cmd.Context(), doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %s\n", doc.ID)
			}
			eng.Drain()
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Document ID (single file only; default is the file path)")

	return cmd
}

func newRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <doc-id>...",
		Short: "Remove documents from the indexes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			for _, docID := range args {
				if err := eng.RemoveDocument(cmd.Context(), docID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", docID)
			}
			eng.Drain()
			return nil
		},
	}
}

// buildDocument turns file contents into a Document. Markdown headings become
// the title (first level-one heading) and heading list.
func buildDocument(path, content string) index.Document {
	doc := index.Document{
		ID:      filepath.ToSlash(path),
		Content: content,
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		if text == "" {
			continue
		}
		if doc.Title == "" && strings.HasPrefix(trimmed, "# ") {
			doc.Title = text
			continue
		}
		doc.Headings = append(doc.Headings, text)
	}

	if doc.Title == "" {
		base := filepath.Base(path)
		doc.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return doc
}
