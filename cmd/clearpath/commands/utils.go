// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Index loading, display truncation, and flag validation
package commands

import (
	"context"
	"fmt"

	"github.com/clearpath-io/support-rag/internal/chunker"
	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/extractor"
	"github.com/clearpath-io/support-rag/internal/index"
)

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// openIndex loads the cached index. When allowBuild is set and no cache
// exists, it extracts and embeds the corpus instead of failing.
func openIndex(ctx context.Context, cfg *config.Config, allowBuild bool) (*index.Index, error) {
	embedder := index.NewEmbeddingClient(cfg)
	idx := index.NewIndex(embedder, cfg.IndexDir)

	if idx.HasCachedIndex() {
		if err := idx.LoadIndex(); err != nil {
			return nil, fmt.Errorf("loading cached index: %w", err)
		}
		return idx, nil
	}
	if !allowBuild {
		return nil, fmt.Errorf("no cached index in %s (run 'clearpath index' first)", cfg.IndexDir)
	}

	docs, err := extractor.ExtractAllPDFs(cfg.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("extracting PDFs: %w", err)
	}
	chunks := chunker.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkTokens).ChunkDocuments(docs)
	if err := idx.BuildIndex(ctx, chunks); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	return idx, nil
}
