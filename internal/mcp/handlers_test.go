// ABOUTME: Tests for the MCP tool handlers against a stubbed pipeline
// ABOUTME: Covers answer flow, retrieval-only search, and argument errors
package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/index"
	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/memory"
	"github.com/clearpath-io/support-rag/internal/models"
	"github.com/clearpath-io/support-rag/internal/retriever"
	"github.com/clearpath-io/support-rag/internal/router"
	"github.com/clearpath-io/support-rag/internal/server"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "cost") || strings.Contains(strings.ToLower(text), "pricing") {
			vectors[i] = []float32{1, 0, 0}
		} else {
			vectors[i] = []float32{0, 0, 1}
		}
	}
	return vectors, nil
}

type fakeGen struct {
	answer string
	calls  int
}

func (f *fakeGen) Generate(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int) (*llm.Result, error) {
	f.calls++
	return &llm.Result{Content: f.answer, PromptTokens: 20, CompletionTokens: 6}, nil
}

func (f *fakeGen) GenerateStream(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int, onToken func(token string) error) (*llm.Result, error) {
	return f.Generate(ctx, model, messages, maxTokens)
}

func newTestHandlers(t *testing.T, gen *fakeGen) *Handlers {
	t.Helper()

	cfg := &config.Config{
		SimpleModel:         "llama-3.1-8b-instant",
		ComplexModel:        "llama-3.3-70b-versatile",
		TopK:                5,
		SimilarityThreshold: 0.25,
		SimpleMaxTokens:     512,
		ComplexMaxTokens:    1024,
	}
	matrix := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.8, 0.6, 0},
	}
	chunks := []models.Chunk{
		{ChunkID: "pricing_p1_c0", Document: "pricing.pdf", Page: 1, SectionHeading: "Plans", Text: "The Pro plan costs $49 per month."},
		{ChunkID: "guide_p4_c1", Document: "guide.pdf", Page: 4, SectionHeading: "Exports", Text: "Export your data as CSV."},
		{ChunkID: "pricing_p2_c0", Document: "pricing.pdf", Page: 2, SectionHeading: "Plans", Text: "Annual Pro billing saves 10%."},
	}

	pipeline := server.NewServer(
		cfg,
		index.NewIndex(stubEmbedder{}, t.TempDir()),
		retriever.NewRetriever(matrix, chunks),
		router.NewRouter(cfg.SimpleModel, cfg.ComplexModel),
		memory.NewConversationMemory(),
		gen,
	)
	return &Handlers{pipeline: pipeline}
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestAskQuestion_ReturnsAnswerWithSources(t *testing.T) {
	gen := &fakeGen{answer: "The Pro plan costs $49 per month. [Sources: pricing_p1_c0]"}
	handlers := newTestHandlers(t, gen)

	result, err := handlers.AskQuestion(context.Background(), toolRequest("ask_question", map[string]any{
		"question": "What does the Pro plan cost?",
	}))
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("result is error: %s", resultText(t, result))
	}

	var resp models.QueryResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != gen.answer {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("sources = %+v, want both pricing chunks", resp.Sources)
	}
	if !strings.HasPrefix(resp.ConversationID, "conv_") {
		t.Errorf("conversation_id = %q", resp.ConversationID)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestAskQuestion_Greeting(t *testing.T) {
	gen := &fakeGen{answer: "unused"}
	handlers := newTestHandlers(t, gen)

	result, err := handlers.AskQuestion(context.Background(), toolRequest("ask_question", map[string]any{
		"question": "hello",
	}))
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}

	var resp models.QueryResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != router.GreetingResponse {
		t.Errorf("answer = %q, want greeting response", resp.Answer)
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0 for greeting", gen.calls)
	}
}

func TestAskQuestion_MissingQuestion(t *testing.T) {
	handlers := newTestHandlers(t, &fakeGen{answer: "unused"})

	result, err := handlers.AskQuestion(context.Background(), toolRequest("ask_question", map[string]any{}))
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if !result.IsError {
		t.Error("result.IsError = false, want true for missing question")
	}
}

func TestSearchDocs_ReturnsChunks(t *testing.T) {
	handlers := newTestHandlers(t, &fakeGen{answer: "unused"})

	result, err := handlers.SearchDocs(context.Background(), toolRequest("search_docs", map[string]any{
		"query": "Pro plan pricing",
	}))
	if err != nil {
		t.Fatalf("SearchDocs() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("result is error: %s", resultText(t, result))
	}

	var resp struct {
		Query   string `json:"query"`
		Results []struct {
			ChunkID  string  `json:"chunk_id"`
			Document string  `json:"document"`
			Page     int     `json:"page"`
			Text     string  `json:"text"`
			Score    float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2 above threshold", len(resp.Results))
	}
	if resp.Results[0].ChunkID != "pricing_p1_c0" || resp.Results[0].Score < resp.Results[1].Score {
		t.Errorf("results not ranked: %+v", resp.Results)
	}
}

func TestSearchDocs_TopKLimitsResults(t *testing.T) {
	handlers := newTestHandlers(t, &fakeGen{answer: "unused"})

	result, err := handlers.SearchDocs(context.Background(), toolRequest("search_docs", map[string]any{
		"query": "Pro plan pricing",
		"top_k": 1,
	}))
	if err != nil {
		t.Fatalf("SearchDocs() error = %v", err)
	}

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}
}

func TestSearchDocs_MissingQuery(t *testing.T) {
	handlers := newTestHandlers(t, &fakeGen{answer: "unused"})

	result, err := handlers.SearchDocs(context.Background(), toolRequest("search_docs", map[string]any{}))
	if err != nil {
		t.Fatalf("SearchDocs() error = %v", err)
	}
	if !result.IsError {
		t.Error("result.IsError = false, want true for missing query")
	}
}
