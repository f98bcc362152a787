// ABOUTME: CLI command to build the embeddings index from the PDF corpus
// ABOUTME: Extracts, chunks, embeds, and persists the two-file index cache
package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/clearpath-io/support-rag/internal/chunker"
	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/extractor"
	"github.com/clearpath-io/support-rag/internal/index"
	"github.com/joho/godotenv"
)

var indexForce bool

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the embeddings index from the PDF corpus",
		Long: `Build the embeddings index from the PDF corpus.

Extracts every PDF under DOCS_DIR, chunks the text with structural
awareness, embeds all chunks, and persists the index cache to INDEX_DIR.

Examples:
  clearpath index
  clearpath index --force`,
		RunE: runIndex,
	}

	cmd.Flags().BoolVar(&indexForce, "force", false, "Rebuild even if a cached index exists")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	embedder := index.NewEmbeddingClient(cfg)
	idx := index.NewIndex(embedder, cfg.IndexDir)

	if idx.HasCachedIndex() && !indexForce {
		if err := idx.LoadIndex(); err != nil {
			return fmt.Errorf("loading cached index: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Cached index already present (%d chunks). Use --force to rebuild.\n", idx.Size())
		}
		return nil
	}

	docs, err := extractor.ExtractAllPDFs(cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("extracting PDFs: %w", err)
	}

	chunks := chunker.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkTokens).ChunkDocuments(docs)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced from %s", cfg.DocsDir)
	}

	if verbose {
		perDoc := map[string]int{}
		for _, chunk := range chunks {
			perDoc[chunk.Document]++
		}
		names := make([]string, 0, len(perDoc))
		for name := range perDoc {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d chunks\n", name, perDoc[name])
		}
	}

	if err := idx.BuildIndex(cmd.Context(), chunks); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d pages into %s\n", len(chunks), len(docs), cfg.IndexDir)
	}
	return nil
}
