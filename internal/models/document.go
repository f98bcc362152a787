// ABOUTME: Document represents one page of text extracted from a source PDF
// ABOUTME: Produced by the extractor, consumed by the chunker
package models

// Document is a single page of extracted source text.
type Document struct {
	SourceName string `json:"source_name"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}
