// ABOUTME: Chunk is the atomic retrievable unit of document text
// ABOUTME: Chunk IDs are deterministic and persisted alongside the embedding matrix
package models

// Chunk is one retrieval-ready piece of a document with its metadata.
// ChunkID is derived from the source document, page, and sequence, so
// rebuilding the index from the same documents reproduces the same IDs.
type Chunk struct {
	ChunkID        string `json:"chunk_id"`
	Document       string `json:"document"`
	Page           int    `json:"page"`
	SectionHeading string `json:"section_heading"`
	Text           string `json:"text"`
	TokenCount     int    `json:"token_count"`
}
