package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsift/docsift/internal/chat"
	"github.com/docsift/docsift/internal/search"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	tenant      string
	topK        int
	temperature float32
	showSources bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from indexed documents",
		Long: `Answer a question using retrieved document chunks as context.

The question runs through hybrid search first; the top chunks are
handed to the completion model as grounding context. Low-temperature
answers are cached, so repeating a question is free.

Examples:
  docsift ask "what is the refund window?" --tenant acme
  docsift ask "who approves expense reports?" --tenant acme --sources`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runAsk(cmd.Context(), cmd, question, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tenant, "tenant", "default", "Tenant scope for retrieval")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Number of context chunks to retrieve (0 uses the configured default)")
	cmd.Flags().Float32Var(&opts.temperature, "temperature", 0, "Sampling temperature for the answer")
	cmd.Flags().BoolVar(&opts.showSources, "sources", false, "List the source chunks under the answer")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, opts askOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	apiKey := os.Getenv(cfg.Chat.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("ask requires an API key in $%s", cfg.Chat.APIKeyEnv)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.engine.Search(ctx, question, opts.tenant, search.Options{
		TopK:         opts.topK,
		UseReranking: cfg.Reranker.Enabled,
	})
	if err != nil {
		return fmt.Errorf("retrieve context: %w", err)
	}
	if len(results) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No indexed content matches %q\n", question)
		return err
	}

	gen, err := chat.NewOpenAIGenerator(chat.OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
	})
	if err != nil {
		return err
	}

	cache, err := chat.NewResponseCache(cfg.Chat.CacheSize, cfg.Chat.CacheTTL)
	if err != nil {
		return err
	}
	cached := chat.NewCachedGenerator(gen, cache, cfg.Chat.MaxCacheableTemperature)
	defer cached.Close()

	answer, err := cached.Generate(ctx, chat.Request{
		Messages:    askMessages(question, results),
		Temperature: opts.temperature,
	})
	if err != nil {
		return fmt.Errorf("generate answer: %w", err)
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer)); err != nil {
		return err
	}

	if opts.showSources {
		if _, err := fmt.Fprintln(cmd.OutOrStdout()); err != nil {
			return err
		}
		for _, r := range results {
			source := r.SourceName
			if source == "" {
				source = r.DocumentID
			}
			line := fmt.Sprintf("[%d] %s", r.Rank, source)
			if r.Page > 0 {
				line += fmt.Sprintf(" (p.%d)", r.Page)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
				return err
			}
		}
	}
	return nil
}

const askSystemPrompt = `You answer questions using only the provided context passages.
Cite passages by their [n] marker. If the context does not contain the
answer, say so instead of guessing.`

// askMessages builds the conversation window: a system prompt, the
// numbered context passages, and the question.
func askMessages(question string, results []*search.EnrichedResult) []chat.Message {
	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	for _, r := range results {
		source := r.SourceName
		if source == "" {
			source = r.DocumentID
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", r.Rank, source, strings.TrimSpace(r.Content))
	}
	b.WriteString("Question: ")
	b.WriteString(question)

	return []chat.Message{
		{Role: chat.RoleSystem, Content: askSystemPrompt},
		{Role: chat.RoleUser, Content: b.String()},
	}
}
