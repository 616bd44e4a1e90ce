package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDocumentsCmd() *cobra.Command {
	var tenant string
	var count int
	var format string

	cmd := &cobra.Command{
		Use:   "documents <query>",
		Short: "Find the most relevant whole documents",
		Long: `Find distinct parent documents relevant to a query.

Chunk-level vector matches are over-fetched and collapsed to the first
appearance of each parent document, so a document's position reflects
its best-matching chunk. Intended for consumers that assemble context
from whole documents rather than chunks.

Examples:
  docsift documents "onboarding checklist" --tenant acme --count 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runDocuments(cmd.Context(), cmd, query, tenant, count, format)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "Tenant scope for the query")
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of documents to return")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runDocuments(ctx context.Context, cmd *cobra.Command, query, tenant string, count int, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	docIDs, err := a.engine.FindRelevantDocuments(ctx, query, tenant, count)
	if err != nil {
		return fmt.Errorf("document discovery failed: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docIDs)
	}

	if len(docIDs) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No documents for %q\n", query)
		return err
	}
	for i, id := range docIDs {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, id); err != nil {
			return err
		}
	}
	return nil
}
