// ABOUTME: Streaming query handler emitting Server-Sent Events
// ABOUTME: Tokens flow as data events, closed by a done event with metadata
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clearpath-io/support-rag/internal/evaluator"
	"github.com/clearpath-io/support-rag/internal/models"
	"github.com/clearpath-io/support-rag/internal/router"
)

type tokenEvent struct {
	Token string `json:"token"`
}

type errorEvent struct {
	Error string `json:"error"`
}

type doneEvent struct {
	Done           bool                 `json:"done"`
	Metadata       models.QueryMetadata `json:"metadata"`
	Sources        []models.SourceInfo  `json:"sources"`
	ConversationID string               `json:"conversation_id"`
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if s.classifier.IsGreeting(question) {
		s.streamGreeting(w, flusher, question, conversationID, start)
		return
	}

	ctx := r.Context()
	pipe, err := s.runPipeline(ctx, question, conversationID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	setStreamHeaders(w)

	emitted := false
	onToken := func(token string) error {
		emitted = true
		return writeEvent(w, flusher, tokenEvent{Token: token})
	}

	// Fall back to the simple model only while nothing has been sent, so
	// the client never sees duplicated tokens.
	model := pipe.classification.Model
	result, err := s.generator.GenerateStream(ctx, model, pipe.messages, pipe.maxTokens, onToken)
	if err != nil && !emitted && pipe.classification.Tier == models.TierComplex {
		slog.Warn("complex model failed, falling back to simple", "model", model, "error", err)
		model = s.cfg.SimpleModel
		result, err = s.generator.GenerateStream(ctx, model, pipe.messages, pipe.maxTokens, onToken)
	}
	if err != nil {
		detail := err.Error()
		if !emitted {
			detail = fmt.Sprintf("LLM service unavailable: %v", err)
		}
		writeEvent(w, flusher, errorEvent{Error: detail})
		return
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

	writeEvent(w, flusher, doneEvent{
		Done: true,
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
	})
}

// streamGreeting sends the canned greeting as one token event plus a done
// event, matching the shape of a real streamed answer.
func (s *Server) streamGreeting(w http.ResponseWriter, flusher http.Flusher, question, conversationID string, start time.Time) {
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

	setStreamHeaders(w)
	writeEvent(w, flusher, tokenEvent{Token: router.GreetingResponse})
	writeEvent(w, flusher, doneEvent{
		Done:           true,
		Metadata:       greetingMetadata(s.cfg.SimpleModel, latency),
		Sources:        []models.SourceInfo{},
		ConversationID: conversationID,
	})
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Keeps nginx from buffering the event stream
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeEvent(w io.Writer, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
