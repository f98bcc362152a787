// ABOUTME: Tests for the non-streaming query endpoint
// ABOUTME: Covers routing tiers, fallback, greetings, follow-ups, and errors
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/models"
	"github.com/clearpath-io/support-rag/internal/router"
)

func decodeResponse(t *testing.T, body string) models.QueryResponse {
	t.Helper()
	var resp models.QueryResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response: %v\n%s", err, body)
	}
	return resp
}

func TestHandleQuery_Success(t *testing.T) {
	gen := staticGen("The Pro plan costs $49 per month. [Sources: pricing_p1_c0]")
	srv, _ := newTestServer(t, gen)

	rr := postJSON(srv.Routes(), "/query", `{"question": "What does the Pro plan cost?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr.Body.String())
	if resp.Answer != "The Pro plan costs $49 per month. [Sources: pricing_p1_c0]" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Metadata.ModelUsed != "llama-3.1-8b-instant" {
		t.Errorf("model_used = %q, want simple model", resp.Metadata.ModelUsed)
	}
	if resp.Metadata.Classification != models.TierSimple {
		t.Errorf("classification = %q, want simple", resp.Metadata.Classification)
	}
	if resp.Metadata.Tokens.Input != 42 || resp.Metadata.Tokens.Output != 9 {
		t.Errorf("tokens = %+v, want 42/9", resp.Metadata.Tokens)
	}
	if resp.Metadata.ChunksRetrieved != 1 {
		t.Errorf("chunks_retrieved = %d, want 1", resp.Metadata.ChunksRetrieved)
	}
	if len(resp.Metadata.EvaluatorFlags) != 0 {
		t.Errorf("evaluator_flags = %v, want none", resp.Metadata.EvaluatorFlags)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Document != "pricing.pdf" || resp.Sources[0].Page != 1 {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Sources[0].RelevanceScore < 0.999 {
		t.Errorf("relevance_score = %v, want ~1.0", resp.Sources[0].RelevanceScore)
	}
	if !strings.HasPrefix(resp.ConversationID, "conv_") || len(resp.ConversationID) != len("conv_")+12 {
		t.Errorf("conversation_id = %q", resp.ConversationID)
	}

	if len(gen.maxTokens) != 1 || gen.maxTokens[0] != 512 {
		t.Errorf("maxTokens = %v, want [512]", gen.maxTokens)
	}
	user := gen.messages[0][1].Content
	if !strings.Contains(user, "The Pro plan costs $49 per month.") {
		t.Error("prompt missing retrieved chunk text")
	}
	if !strings.HasSuffix(user, "Question: What does the Pro plan cost?") {
		t.Errorf("prompt does not end with the question:\n%s", user)
	}
}

func TestHandleQuery_ComplexTier(t *testing.T) {
	gen := staticGen("Pro is $49 and Enterprise is custom. [Sources: pricing_p1_c0]")
	srv, _ := newTestServer(t, gen)

	rr := postJSON(srv.Routes(), "/query", `{"question": "Compare Pro and Enterprise pricing"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr.Body.String())
	if resp.Metadata.Classification != models.TierComplex {
		t.Errorf("classification = %q, want complex", resp.Metadata.Classification)
	}
	if resp.Metadata.ModelUsed != "llama-3.3-70b-versatile" {
		t.Errorf("model_used = %q, want complex model", resp.Metadata.ModelUsed)
	}
	if gen.maxTokens[0] != 1024 {
		t.Errorf("maxTokens = %d, want 1024", gen.maxTokens[0])
	}
}

func TestHandleQuery_ComplexFallsBackToSimple(t *testing.T) {
	gen := &fakeGen{
		generate: func(model string, _ []openai.ChatCompletionMessage) (*llm.Result, error) {
			if model == "llama-3.3-70b-versatile" {
				return nil, errors.New("capacity exceeded")
			}
			return &llm.Result{Content: "Fallback answer.", PromptTokens: 10, CompletionTokens: 3}, nil
		},
	}
	srv, _ := newTestServer(t, gen)

	rr := postJSON(srv.Routes(), "/query", `{"question": "Compare Pro and Enterprise pricing"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr.Body.String())
	if resp.Metadata.ModelUsed != "llama-3.1-8b-instant" {
		t.Errorf("model_used = %q, want simple model after fallback", resp.Metadata.ModelUsed)
	}
	if resp.Answer != "Fallback answer." {
		t.Errorf("answer = %q", resp.Answer)
	}
	want := []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	if len(gen.models) != 2 || gen.models[0] != want[0] || gen.models[1] != want[1] {
		t.Errorf("models called = %v, want %v", gen.models, want)
	}
	// Fallback keeps the complex tier's token budget
	if gen.maxTokens[1] != 1024 {
		t.Errorf("fallback maxTokens = %d, want 1024", gen.maxTokens[1])
	}
}

func TestHandleQuery_SimpleFailureReturns503(t *testing.T) {
	gen := &fakeGen{
		generate: func(string, []openai.ChatCompletionMessage) (*llm.Result, error) {
			return nil, errors.New("connection refused")
		},
	}
	srv, _ := newTestServer(t, gen)

	rr := postJSON(srv.Routes(), "/query", `{"question": "What does the Pro plan cost?"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "LLM service unavailable") {
		t.Errorf("body = %s", rr.Body.String())
	}
	if len(gen.models) != 1 {
		t.Errorf("models called = %v, want a single attempt", gen.models)
	}
}

func TestHandleQuery_EmptyQuestion(t *testing.T) {
	srv, _ := newTestServer(t, staticGen("unused"))

	rr := postJSON(srv.Routes(), "/query", `{"question": "   "}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Question cannot be empty") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleQuery_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, staticGen("unused"))

	rr := postJSON(srv.Routes(), "/query", `{"question": `)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
}

func TestHandleQuery_Greeting(t *testing.T) {
	gen := staticGen("unused")
	srv, mem := newTestServer(t, gen)

	rr := postJSON(srv.Routes(), "/query", `{"question": "hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	resp := decodeResponse(t, rr.Body.String())
	if resp.Answer != router.GreetingResponse {
		t.Errorf("answer = %q, want greeting response", resp.Answer)
	}
	if resp.Metadata.Classification != models.TierSimple || resp.Metadata.ChunksRetrieved != 0 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources = %v, want empty", resp.Sources)
	}
	if len(gen.models) != 0 {
		t.Errorf("generator called %d times for a greeting", len(gen.models))
	}
	if !mem.HasHistory(resp.ConversationID) {
		t.Error("greeting turn not stored in memory")
	}
}

func TestHandleQuery_ConversationIDPreserved(t *testing.T) {
	srv, _ := newTestServer(t, staticGen("An answer."))

	rr := postJSON(srv.Routes(), "/query", `{"question": "What does the Pro plan cost?", "conversation_id": "conv_abc123def456"}`)
	resp := decodeResponse(t, rr.Body.String())
	if resp.ConversationID != "conv_abc123def456" {
		t.Errorf("conversation_id = %q, want preserved", resp.ConversationID)
	}
}

func TestHandleQuery_NoResultsFlagsRefusal(t *testing.T) {
	refusal := "I don't have that information in the ClearPath documentation. Please contact support@clearpath.io."
	srv, _ := newTestServer(t, staticGen(refusal))

	rr := postJSON(srv.Routes(), "/query", `{"question": "Tell me about gardening please today"}`)
	resp := decodeResponse(t, rr.Body.String())

	if resp.Metadata.ChunksRetrieved != 0 {
		t.Errorf("chunks_retrieved = %d, want 0", resp.Metadata.ChunksRetrieved)
	}
	if len(resp.Metadata.EvaluatorFlags) != 1 || resp.Metadata.EvaluatorFlags[0] != "refusal" {
		t.Errorf("evaluator_flags = %v, want [refusal]", resp.Metadata.EvaluatorFlags)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources = %v, want empty", resp.Sources)
	}
}

func TestHandleQuery_FollowupRewrite(t *testing.T) {
	gen := &fakeGen{
		generate: func(_ string, messages []openai.ChatCompletionMessage) (*llm.Result, error) {
			if strings.HasPrefix(messages[0].Content, "You rewrite user questions") {
				return &llm.Result{Content: "What does the Pro plan cost each month?"}, nil
			}
			return &llm.Result{Content: "The Pro plan costs $49 per month.", PromptTokens: 30, CompletionTokens: 8}, nil
		},
	}
	srv, mem := newTestServer(t, gen)
	mem.AddTurn("conv_followup123", "What is the Pro plan?", "Pro is the mid tier at $49.")

	rr := postJSON(srv.Routes(), "/query", `{"question": "How much does it cost?", "conversation_id": "conv_followup123"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	if len(gen.models) != 2 {
		t.Fatalf("generator calls = %d, want rewrite + answer", len(gen.models))
	}
	if gen.models[0] != "llama-3.1-8b-instant" {
		t.Errorf("rewrite model = %q, want simple model", gen.models[0])
	}

	answerPrompt := gen.messages[1][1].Content
	if !strings.HasSuffix(answerPrompt, "Question: What does the Pro plan cost each month?") {
		t.Errorf("prompt not built from rewritten query:\n%s", answerPrompt)
	}
	if !strings.Contains(answerPrompt, "Previous conversation:") {
		t.Error("prompt missing conversation history")
	}
}
