// ABOUTME: Request and response types for the HTTP query API
// ABOUTME: Field names match the public API contract
package models

// QueryRequest is the POST /query request body.
type QueryRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// TokenUsage is the prompt/completion token breakdown for one generation.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// QueryMetadata describes how a query was processed.
type QueryMetadata struct {
	ModelUsed       string     `json:"model_used"`
	Classification  Tier       `json:"classification"`
	Tokens          TokenUsage `json:"tokens"`
	LatencyMS       int64      `json:"latency_ms"`
	ChunksRetrieved int        `json:"chunks_retrieved"`
	EvaluatorFlags  []string   `json:"evaluator_flags"`
}

// SourceInfo identifies one retrieved source document.
type SourceInfo struct {
	Document       string  `json:"document"`
	Page           int     `json:"page"`
	RelevanceScore float64 `json:"relevance_score"`
}

// QueryResponse is the POST /query response body.
type QueryResponse struct {
	Answer         string        `json:"answer"`
	Metadata       QueryMetadata `json:"metadata"`
	Sources        []SourceInfo  `json:"sources"`
	ConversationID string        `json:"conversation_id"`
}
