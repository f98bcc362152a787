// ABOUTME: CLI command to ask the support assistant a question
// ABOUTME: Runs the full pipeline one-shot or as an interactive conversation
package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/memory"
	"github.com/clearpath-io/support-rag/internal/models"
	"github.com/clearpath-io/support-rag/internal/retriever"
	"github.com/clearpath-io/support-rag/internal/router"
	"github.com/clearpath-io/support-rag/internal/server"
	"github.com/joho/godotenv"
)

var askConversation bool

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the support assistant a question",
		Long: `Ask the support assistant a question.

Runs the full retrieval pipeline: classifies the question, retrieves
matching documentation chunks, and generates an answer on the
appropriate model tier. With --conversation the session stays open and
follow-up questions are read from stdin.

Examples:
  clearpath ask "How do I export my data?"
  clearpath ask --conversation
  clearpath ask --format json "What does the Pro plan cost?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askConversation, "conversation", false, "Keep the session open and read follow-ups from stdin")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	if len(args) == 0 && !askConversation {
		return fmt.Errorf("provide a question or use --conversation for an interactive session")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is not set")
	}

	idx, err := openIndex(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	pipeline := server.NewServer(
		cfg,
		idx,
		retriever.NewRetriever(idx.Matrix(), idx.Chunks()),
		router.NewRouter(cfg.SimpleModel, cfg.ComplexModel),
		memory.NewConversationMemory(),
		llm.NewClient(cfg),
	)

	conversationID := server.NewConversationID()

	if len(args) == 1 {
		resp, err := pipeline.Answer(cmd.Context(), args[0], conversationID)
		if err != nil {
			return err
		}
		if err := printResponse(cmd, resp); err != nil {
			return err
		}
		if !askConversation {
			return nil
		}
	}

	return conversationLoop(cmd, pipeline, conversationID)
}

// conversationLoop reads follow-up questions until EOF or an exit word.
func conversationLoop(cmd *cobra.Command, pipeline *server.Server, conversationID string) error {
	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "Interactive session. Type 'exit' or press Ctrl-D to quit.")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		resp, err := pipeline.Answer(cmd.Context(), question, conversationID)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := printResponse(cmd, resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// printResponse writes one answer in the selected output format.
func printResponse(cmd *cobra.Command, resp *models.QueryResponse) error {
	if outputFormat == "json" {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
	if verbose {
		meta := resp.Metadata
		fmt.Fprintf(cmd.OutOrStdout(), "\n[%s | %s | %d chunks | %dms]\n",
			meta.ModelUsed, meta.Classification, meta.ChunksRetrieved, meta.LatencyMS)
		for _, src := range resp.Sources {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s p.%d (%.4f)\n", src.Document, src.Page, src.RelevanceScore)
		}
		if len(meta.EvaluatorFlags) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  flags: %v\n", meta.EvaluatorFlags)
		}
	}
	return nil
}
