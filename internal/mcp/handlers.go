// ABOUTME: MCP tool handler implementations for the docs QA server
// ABOUTME: Thin adapters over the shared query pipeline, returning JSON text
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/clearpath-io/support-rag/internal/server"
)

// Handlers contains the handler functions for the MCP tools.
type Handlers struct {
	pipeline *server.Server
}

// AskQuestion handles the ask_question tool.
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return mcp.NewToolResultError("question cannot be empty"), nil
	}

	conversationID := request.GetString("conversation_id", "")
	if conversationID == "" {
		conversationID = server.NewConversationID()
	}

	resp, err := h.pipeline.Answer(ctx, question, conversationID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	responseJSON, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// SearchDocs handles the search_docs tool.
func (h *Handlers) SearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}

	topK := request.GetInt("top_k", 5)

	results, err := h.pipeline.SearchDocs(ctx, query, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	matches := make([]map[string]interface{}, 0, len(results))
	for _, result := range results {
		matches = append(matches, map[string]interface{}{
			"chunk_id":        result.Chunk.ChunkID,
			"document":        result.Chunk.Document,
			"page":            result.Chunk.Page,
			"section_heading": result.Chunk.SectionHeading,
			"text":            result.Chunk.Text,
			"score":           result.Score,
		})
	}

	response := map[string]interface{}{
		"query":   query,
		"results": matches,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}
