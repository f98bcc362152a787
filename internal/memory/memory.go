// ABOUTME: In-memory conversation history with follow-up detection
// ABOUTME: Rewrites follow-up questions into standalone queries via the LLM
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/llm"
	"github.com/clearpath-io/support-rag/internal/models"
)

const (
	// maxTurns bounds stored history per conversation; older turns are evicted.
	maxTurns = 5
	// historyWindow is how many recent turns feed prompts and rewrites.
	historyWindow = 3
	// answerTruncateLen caps stored assistant answers, in runes.
	answerTruncateLen = 200
	// maxRewriteLen rejects runaway rewrites and falls back to the original.
	maxRewriteLen = 500

	rewriteMaxTokens = 128

	rewriteSystemPrompt = "You rewrite user questions to be standalone. Output ONLY the rewritten question."

	rewritePromptTemplate = "Given this conversation history:\n%s\n\nRewrite the following question to be standalone and self-contained, incorporating context from the conversation. Output ONLY the rewritten question, nothing else.\n\nQuestion: %s"
)

// pronounRe matches referring pronouns that signal a follow-up question.
var pronounRe = regexp.MustCompile(`(?i)\b(it|that|they|this|its|their|them|those|these|he|she)\b`)

// referringPhrases are multi-word cues that a question leans on earlier turns.
var referringPhrases = []string{
	"about that",
	"from before",
	"you mentioned",
	"you said",
	"previously",
	"as you said",
	"regarding that",
	"the same",
	"more about",
	"tell me more",
	"go on",
	"continue",
	"what about",
	"and also",
	"follow up",
	"following up",
}

// Generator produces a completion for rewrite requests. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int) (*llm.Result, error)
}

// ConversationMemory tracks recent turns per conversation. Safe for
// concurrent use.
type ConversationMemory struct {
	mu            sync.RWMutex
	conversations map[string][]models.Turn
}

// NewConversationMemory creates an empty store.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{
		conversations: make(map[string][]models.Turn),
	}
}

// AddTurn records a completed exchange. Answers are truncated before
// storage so prompts stay small, and only the most recent turns are kept.
func (m *ConversationMemory) AddTurn(conversationID, userQuery, assistantAnswer string) {
	if utf8.RuneCountInString(assistantAnswer) > answerTruncateLen {
		assistantAnswer = string([]rune(assistantAnswer)[:answerTruncateLen]) + "..."
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.conversations[conversationID], models.Turn{
		UserQuery:       userQuery,
		AssistantAnswer: assistantAnswer,
		Timestamp:       time.Now(),
	})
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	m.conversations[conversationID] = turns
}

// GetHistory returns the most recent turns, oldest first, or nil when the
// conversation is unknown.
func (m *ConversationMemory) GetHistory(conversationID string) []models.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.conversations[conversationID]
	if len(turns) == 0 {
		return nil
	}
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}

	entries := make([]models.HistoryEntry, 0, len(turns))
	for _, turn := range turns {
		entries = append(entries, models.HistoryEntry{
			User:      turn.UserQuery,
			Assistant: turn.AssistantAnswer,
		})
	}
	return entries
}

// HasHistory reports whether any turns exist for the conversation.
func (m *ConversationMemory) HasHistory(conversationID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations[conversationID]) > 0
}

// IsFollowup reports whether the query likely depends on earlier turns.
// A first question is never a follow-up. Referring pronouns, very short
// questions, and referring phrases all count once history exists.
func (m *ConversationMemory) IsFollowup(conversationID, query string) bool {
	if !m.HasHistory(conversationID) {
		return false
	}

	lowered := strings.ToLower(strings.TrimSpace(query))
	if pronounRe.MatchString(lowered) {
		return true
	}
	if len(strings.Fields(lowered)) < 5 {
		return true
	}
	for _, phrase := range referringPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// RewriteQuery asks the model to restate a follow-up as a standalone
// question. Any failure, empty output, or oversized output falls back to
// the original query.
func (m *ConversationMemory) RewriteQuery(ctx context.Context, gen Generator, conversationID, query, model string) string {
	history := m.GetHistory(conversationID)
	if len(history) == 0 {
		return query
	}

	result, err := gen.Generate(ctx, model, buildRewriteMessages(history, query), rewriteMaxTokens)
	if err != nil {
		slog.Warn("query rewrite failed, using original", "error", err)
		return query
	}

	rewritten := strings.TrimSpace(result.Content)
	if rewritten == "" || utf8.RuneCountInString(rewritten) > maxRewriteLen {
		return query
	}
	return rewritten
}

func buildRewriteMessages(history []models.HistoryEntry, query string) []openai.ChatCompletionMessage {
	var lines []string
	for _, entry := range history {
		lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", entry.User, entry.Assistant))
	}

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: rewriteSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(rewritePromptTemplate, strings.Join(lines, "\n"), query)},
	}
}
