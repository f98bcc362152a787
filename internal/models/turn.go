// ABOUTME: Turn represents a single completed exchange in a conversation
// ABOUTME: Assistant answers are stored pre-truncated by the memory layer
package models

import "time"

// Turn is one user query plus the assistant's (truncated) answer.
type Turn struct {
	UserQuery       string    `json:"user_query"`
	AssistantAnswer string    `json:"assistant_answer"`
	Timestamp       time.Time `json:"timestamp"`
}

// HistoryEntry is a turn formatted for prompt inclusion.
type HistoryEntry struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}
