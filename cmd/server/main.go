// ABOUTME: Main entry point for the ClearPath support RAG HTTP server
// ABOUTME: Builds or loads the embeddings index, then serves the query API

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/clearpath-io/support-rag/internal/chunker"
	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/extractor"
	"github.com/clearpath-io/support-rag/internal/index"
	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/memory"
	"github.com/clearpath-io/support-rag/internal/retriever"
	"github.com/clearpath-io/support-rag/internal/router"
	"github.com/clearpath-io/support-rag/internal/server"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GroqAPIKey == "" {
		log.Println("Warning: GROQ_API_KEY not set - generation requests will fail")
	}

	idx, err := buildOrLoadIndex(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to prepare index: %v", err)
	}

	ret := retriever.NewRetriever(idx.Matrix(), idx.Chunks())
	classifier := router.NewRouter(cfg.SimpleModel, cfg.ComplexModel)
	mem := memory.NewConversationMemory()
	generator := llm.NewClient(cfg)

	srv := server.NewServer(cfg, idx, ret, classifier, mem, generator)

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: srv.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server listening", "addr", httpServer.Addr, "chunks_indexed", idx.Size())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}

// buildOrLoadIndex loads the cached index when present, otherwise extracts
// the PDF corpus, chunks it, and embeds everything from scratch.
func buildOrLoadIndex(ctx context.Context, cfg *config.Config) (*index.Index, error) {
	embedder := index.NewEmbeddingClient(cfg)
	idx := index.NewIndex(embedder, cfg.IndexDir)

	if idx.HasCachedIndex() {
		slog.Info("loading cached embeddings index", "index_dir", cfg.IndexDir)
		if err := idx.LoadIndex(); err != nil {
			return nil, err
		}
		return idx, nil
	}

	slog.Info("building embeddings index from PDFs", "docs_dir", cfg.DocsDir)
	docs, err := extractor.ExtractAllPDFs(cfg.DocsDir)
	if err != nil {
		return nil, err
	}
	chunks := chunker.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkTokens).ChunkDocuments(docs)
	if err := idx.BuildIndex(ctx, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}
