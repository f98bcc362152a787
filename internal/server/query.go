// ABOUTME: Pipeline orchestration and the non-streaming query handler
// ABOUTME: Rewrite, classify, retrieve, prompt, generate, evaluate, log
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/evaluator"
	"github.com/clearpath-io/support-rag/internal/models"
	"github.com/clearpath-io/support-rag/internal/prompt"
	"github.com/clearpath-io/support-rag/internal/router"
)

// pipelineState is everything the generation step needs, shared between the
// plain and streaming handlers.
type pipelineState struct {
	rewritten      string
	classification models.Classification
	results        []models.SearchResult
	messages       []openai.ChatCompletionMessage
	maxTokens      int
}

// runPipeline executes every step up to generation: follow-up rewrite,
// classification, retrieval, and prompt assembly. Classification and
// retrieval both operate on the rewritten query.
func (s *Server) runPipeline(ctx context.Context, question, conversationID string) (*pipelineState, error) {
	rewritten := question
	if s.memory.IsFollowup(conversationID, question) {
		rewritten = s.memory.RewriteQuery(ctx, s.generator, conversationID, question, s.cfg.SimpleModel)
	}

	classification := s.classifier.Classify(rewritten)

	queryVec, err := s.index.EmbedQuery(ctx, rewritten)
	if err != nil {
		return nil, fmt.Errorf("embedding service unavailable: %w", err)
	}
	results := s.retriever.Search(queryVec, s.cfg.TopK, s.cfg.SimilarityThreshold)

	history := s.memory.GetHistory(conversationID)
	messages, _ := prompt.BuildMessages(rewritten, results, history)

	maxTokens := s.cfg.SimpleMaxTokens
	if classification.Tier == models.TierComplex {
		maxTokens = s.cfg.ComplexMaxTokens
	}

	return &pipelineState{
		rewritten:      rewritten,
		classification: classification,
		results:        results,
		messages:       messages,
		maxTokens:      maxTokens,
	}, nil
}

// Answer runs the complete pipeline for one question and returns the API
// response. Both the HTTP handler and the MCP tools go through here.
func (s *Server) Answer(ctx context.Context, question, conversationID string) (*models.QueryResponse, error) {
	start := time.Now()

	if s.classifier.IsGreeting(question) {
		return s.answerGreeting(question, conversationID, start), nil
	}

	pipe, err := s.runPipeline(ctx, question, conversationID)
	if err != nil {
		return nil, err
	}

	// Generate, falling back to the simple model once if the complex
	// model fails.
	model := pipe.classification.Model
	result, err := s.generator.Generate(ctx, model, pipe.messages, pipe.maxTokens)
	if err != nil && pipe.classification.Tier == models.TierComplex {
		slog.Warn("complex model failed, falling back to simple", "model", model, "error", err)
		model = s.cfg.SimpleModel
		result, err = s.generator.Generate(ctx, model, pipe.messages, pipe.maxTokens)
	}
	if err != nil {
		return nil, fmt.Errorf("LLM service unavailable: %w", err)
	}

	answer := result.Content
	flags := evaluator.Evaluate(answer, pipe.results)
	latency := time.Since(start).Milliseconds()

	s.memory.AddTurn(conversationID, question, answer)

	logQuery(queryEvent{
		query:           question,
		classification:  string(pipe.classification.Tier),
		modelUsed:       model,
		complexityScore: pipe.classification.Score,
		signals:         pipe.classification.Signals,
		tokensInput:     result.PromptTokens,
		tokensOutput:    result.CompletionTokens,
		latencyMS:       latency,
		conversationID:  conversationID,
		evaluatorFlags:  flags,
		chunksRetrieved: len(pipe.results),
	})

	return &models.QueryResponse{
		Answer: answer,
		Metadata: models.QueryMetadata{
			ModelUsed:       model,
			Classification:  pipe.classification.Tier,
			Tokens:          models.TokenUsage{Input: result.PromptTokens, Output: result.CompletionTokens},
			LatencyMS:       latency,
			ChunksRetrieved: len(pipe.results),
			EvaluatorFlags:  flags,
		},
		Sources:        buildSources(pipe.results),
		ConversationID: conversationID,
	}, nil
}

// SearchDocs embeds the query and returns the top matches above the
// configured similarity threshold, with no generation step.
func (s *Server) SearchDocs(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	queryVec, err := s.index.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding service unavailable: %w", err)
	}
	return s.retriever.Search(queryVec, topK, s.cfg.SimilarityThreshold), nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = NewConversationID()
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusUnprocessableEntity, "Question cannot be empty")
		return
	}

	resp, err := s.Answer(r.Context(), question, conversationID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// answerGreeting replies from the canned response without touching
// retrieval or generation. The log records tier "greeter"; the response
// reports "simple" per the API contract.
func (s *Server) answerGreeting(question, conversationID string, start time.Time) *models.QueryResponse {
	latency := time.Since(start).Milliseconds()
	s.memory.AddTurn(conversationID, question, router.GreetingResponse)

	logQuery(queryEvent{
		query:           question,
		classification:  "greeter",
		modelUsed:       s.cfg.SimpleModel,
		complexityScore: 0,
		signals:         map[string]any{},
		latencyMS:       latency,
		conversationID:  conversationID,
		evaluatorFlags:  []string{},
	})

	return &models.QueryResponse{
		Answer:         router.GreetingResponse,
		Metadata:       greetingMetadata(s.cfg.SimpleModel, latency),
		Sources:        []models.SourceInfo{},
		ConversationID: conversationID,
	}
}

func greetingMetadata(model string, latency int64) models.QueryMetadata {
	return models.QueryMetadata{
		ModelUsed:       model,
		Classification:  models.TierSimple,
		Tokens:          models.TokenUsage{Input: 0, Output: 0},
		LatencyMS:       latency,
		ChunksRetrieved: 0,
		EvaluatorFlags:  []string{},
	}
}
