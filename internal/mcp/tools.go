// ABOUTME: MCP tool definitions and registration for the docs QA server
// ABOUTME: Exposes ask_question and search_docs over the Model Context Protocol
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/clearpath-io/support-rag/internal/server"
)

// RegisterTools registers the question answering tools with the MCP server.
func RegisterTools(srv *mcpserver.MCPServer, pipeline *server.Server) *Handlers {
	handlers := &Handlers{pipeline: pipeline}

	// 1. ask_question - full pipeline: retrieve, generate, evaluate
	srv.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Ask a question about the ClearPath documentation. Retrieves relevant passages from the indexed PDFs and returns a grounded answer with sources.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer from the documentation",
				},
				"conversation_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional conversation ID so follow-up questions keep their context",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskQuestion)

	// 2. search_docs - retrieval only, no generation
	srv.AddTool(mcp.Tool{
		Name:        "search_docs",
		Description: "Search the ClearPath documentation index and return the most relevant chunks without generating an answer.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query for the documentation index",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchDocs)

	return handlers
}
