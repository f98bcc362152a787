// ABOUTME: SearchResult pairs a chunk with its similarity score
// ABOUTME: Returned by the retriever in strictly descending score order
package models

// SearchResult is one retrieval hit: the chunk metadata and its cosine
// similarity to the query vector.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
