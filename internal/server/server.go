// ABOUTME: HTTP API for the RAG pipeline: query, streaming query, health
// ABOUTME: Wires retrieval, routing, memory, and generation behind gorilla/mux
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/index"
	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/memory"
	"github.com/clearpath-io/support-rag/internal/models"
	"github.com/clearpath-io/support-rag/internal/retriever"
	"github.com/clearpath-io/support-rag/internal/router"
)

// Generator produces completions for query answering. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int) (*llm.Result, error)
	GenerateStream(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int, onToken func(token string) error) (*llm.Result, error)
}

// Server handles HTTP requests against a loaded index.
type Server struct {
	cfg        *config.Config
	index      *index.Index
	retriever  *retriever.Retriever
	classifier *router.Router
	memory     *memory.ConversationMemory
	generator  Generator
}

// NewServer wires the pipeline components into an HTTP server.
func NewServer(cfg *config.Config, idx *index.Index, ret *retriever.Retriever, classifier *router.Router, mem *memory.ConversationMemory, gen Generator) *Server {
	return &Server{
		cfg:        cfg,
		index:      idx,
		retriever:  ret,
		classifier: classifier,
		memory:     mem,
		generator:  gen,
	}
}

// Routes builds the HTTP route table.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/query/stream", s.handleQueryStream).Methods(http.MethodPost, http.MethodOptions)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware allows browser clients from any origin and short-circuits
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewConversationID mints an identifier for conversations the client did
// not name.
func NewConversationID() string {
	id := uuid.New()
	return "conv_" + hex.EncodeToString(id[:])[:12]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError mirrors the {"detail": ...} error shape of the public API.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func buildSources(results []models.SearchResult) []models.SourceInfo {
	sources := make([]models.SourceInfo, 0, len(results))
	for _, result := range results {
		sources = append(sources, models.SourceInfo{
			Document:       result.Chunk.Document,
			Page:           result.Chunk.Page,
			RelevanceScore: math.Round(result.Score*10000) / 10000,
		})
	}
	return sources
}

// queryEvent carries the per-query fields logged after every request.
type queryEvent struct {
	query           string
	classification  string
	modelUsed       string
	complexityScore int
	signals         map[string]any
	tokensInput     int
	tokensOutput    int
	latencyMS       int64
	conversationID  string
	evaluatorFlags  []string
	chunksRetrieved int
}

func logQuery(ev queryEvent) {
	slog.Info("query_processed",
		"query", ev.query,
		"classification", ev.classification,
		"model_used", ev.modelUsed,
		"complexity_score", ev.complexityScore,
		"signals", ev.signals,
		"tokens_input", ev.tokensInput,
		"tokens_output", ev.tokensOutput,
		"latency_ms", ev.latencyMS,
		"conversation_id", ev.conversationID,
		"evaluator_flags", ev.evaluatorFlags,
		"chunks_retrieved", ev.chunksRetrieved,
	)
}
