// ABOUTME: CLI command to search the indexed documentation
// ABOUTME: Embeds the query and prints top-k chunks above the similarity threshold
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/retriever"
	"github.com/joho/godotenv"
)

var searchTopK int

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documentation",
		Long: `Search the indexed documentation.

Embeds the query and ranks cached chunks by cosine similarity.
Requires a built index (run 'clearpath index' first).

Examples:
  clearpath search "export limits"
  clearpath search --top-k 10 "pricing"
  clearpath search --format json "SSO"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchTopK, "top-k", 5, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	if err := validatePositiveInt(searchTopK, "top-k"); err != nil {
		return err
	}

	query := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	idx, err := openIndex(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	vec, err := idx.EmbedQuery(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	results := retriever.NewRetriever(idx.Matrix(), idx.Chunks()).Search(vec, searchTopK, cfg.SimilarityThreshold)

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No results above threshold for: %s\n", query)
		}
		return nil
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tDOCUMENT\tPAGE\tSECTION\tTEXT")
	for _, result := range results {
		text := strings.Join(strings.Fields(result.Chunk.Text), " ")
		fmt.Fprintf(w, "%.4f\t%s\t%d\t%s\t%s\n",
			result.Score,
			result.Chunk.Document,
			result.Chunk.Page,
			result.Chunk.SectionHeading,
			truncate(text, 60))
	}
	return w.Flush()
}
