package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsift/docsift/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	tenant   string
	topK     int
	minScore float64
	poolSize int
	noRerank bool
	format   string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long: `Search indexed document chunks with hybrid retrieval.

Vector and full-text candidates are merged with Reciprocal Rank Fusion;
when the top candidate is uncertain or the pool is large, a cross-encoder
reranking pass refines the order.

Examples:
  docsift search "refund policy" --tenant acme
  docsift search "data retention period" --tenant acme --top-k 10
  docsift search "gdpr" --tenant acme --format json --min-score 0.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tenant, "tenant", "default", "Tenant scope for the query")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Maximum number of results (0 uses the configured default)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Minimum relevance score")
	cmd.Flags().IntVar(&opts.poolSize, "pool-size", 0, "Rerank pool size (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.noRerank, "no-rerank", false, "Skip cross-encoder reranking for this query")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.engine.Search(ctx, query, opts.tenant, search.Options{
		TopK:              opts.topK,
		MinRelevanceScore: opts.minScore,
		RerankPoolSize:    opts.poolSize,
		UseReranking:      !opts.noRerank && cfg.Reranker.Enabled,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch opts.format {
	case "json":
		return writeResultsJSON(cmd.OutOrStdout(), results)
	default:
		return writeResultsText(cmd.OutOrStdout(), query, results)
	}
}

// searchResultJSON is the stable machine-readable result shape.
type searchResultJSON struct {
	Rank           int               `json:"rank"`
	ChunkID        string            `json:"chunk_id"`
	DocumentID     string            `json:"document_id"`
	SourceName     string            `json:"source_name,omitempty"`
	Page           int               `json:"page,omitempty"`
	Position       int               `json:"position"`
	RelevanceScore float64           `json:"relevance_score"`
	ScoreScale     string            `json:"score_scale"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Content        string            `json:"content"`
}

func writeResultsJSON(w io.Writer, results []*search.EnrichedResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			Rank:           r.Rank,
			ChunkID:        r.ChunkID,
			DocumentID:     r.DocumentID,
			SourceName:     r.SourceName,
			Page:           r.Page,
			Position:       r.Position,
			RelevanceScore: r.RelevanceScore,
			ScoreScale:     string(r.Scale),
			Metadata:       r.Metadata,
			Content:        r.Content,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeResultsText(w io.Writer, query string, results []*search.EnrichedResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(w, "No results for %q\n", query)
		return err
	}

	for _, r := range results {
		source := r.SourceName
		if source == "" {
			source = r.DocumentID
		}
		header := fmt.Sprintf("%d. %s", r.Rank, source)
		if r.Page > 0 {
			header += fmt.Sprintf(" (p.%d)", r.Page)
		}
		header += fmt.Sprintf("  [%.3f %s]", r.RelevanceScore, r.Scale)
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "   %s\n\n", excerpt(r.Content, 240)); err != nil {
			return err
		}
	}
	return nil
}

// excerpt trims content to a display length on a rune boundary.
func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
