// ABOUTME: Cosine similarity search over the in-memory embedding matrix
// ABOUTME: Pure dot-product scoring, valid because all vectors are pre-normalized
package retriever

import (
	"sort"

	"github.com/clearpath-io/support-rag/internal/models"
)

// Retriever performs nearest-neighbor search over indexed chunks. It holds
// read-only references to the matrix and metadata; Search never mutates.
type Retriever struct {
	matrix [][]float32
	chunks []models.Chunk
}

// NewRetriever creates a Retriever over a positionally aligned matrix and
// chunk list. Vectors must already be L2-normalized.
func NewRetriever(matrix [][]float32, chunks []models.Chunk) *Retriever {
	return &Retriever{matrix: matrix, chunks: chunks}
}

// Search returns up to topK chunks scoring at or above threshold against
// the query vector, sorted by descending score. Fewer than topK results,
// including none, is a valid outcome.
func (r *Retriever) Search(queryVec []float32, topK int, threshold float64) []models.SearchResult {
	if len(r.matrix) == 0 || topK <= 0 {
		return nil
	}

	scores := make([]float64, len(r.matrix))
	for i, row := range r.matrix {
		scores[i] = dot(row, queryVec)
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if topK > len(indices) {
		topK = len(indices)
	}

	var results []models.SearchResult
	for _, idx := range indices[:topK] {
		if scores[idx] >= threshold {
			results = append(results, models.SearchResult{
				Chunk: r.chunks[idx],
				Score: scores[idx],
			})
		}
	}
	return results
}

// dot computes the inner product over the shared prefix of two vectors.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
