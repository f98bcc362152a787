// ABOUTME: MCP command starts a Model Context Protocol server over stdio
// ABOUTME: Exposes ask_question and search_docs tools to LLM agents
package commands

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/mcp"
	"github.com/clearpath-io/support-rag/internal/memory"
	"github.com/clearpath-io/support-rag/internal/retriever"
	"github.com/clearpath-io/support-rag/internal/router"
	"github.com/clearpath-io/support-rag/internal/server"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents.

Runs the support pipeline as an MCP (Model Context Protocol) server,
exposing ask_question and search_docs tools over stdio.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  clearpath mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "clearpath": {
  #       "command": "clearpath",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	// stdout carries the MCP protocol, so all logging goes to stderr
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.GroqAPIKey == "" {
		log.Println("Warning: GROQ_API_KEY not set - ask_question will fail")
	}

	idx, err := openIndex(cmd.Context(), cfg, true)
	if err != nil {
		return fmt.Errorf("preparing index: %w", err)
	}

	pipeline := server.NewServer(
		cfg,
		idx,
		retriever.NewRetriever(idx.Matrix(), idx.Chunks()),
		router.NewRouter(cfg.SimpleModel, cfg.ComplexModel),
		memory.NewConversationMemory(),
		llm.NewClient(cfg),
	)

	// Create MCP server
	srv := mcpserver.NewMCPServer(
		"ClearPath RAG Chatbot",
		"1.0.0",
	)

	// Register MCP tools
	mcp.RegisterTools(srv, pipeline)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("ClearPath MCP server starting on stdio...")
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(srv)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, shutting down...")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
