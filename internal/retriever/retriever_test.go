// ABOUTME: Tests for dot-product retrieval over pre-normalized vectors
// ABOUTME: Verifies ranking, threshold filtering, and top-k truncation
package retriever

import (
	"testing"

	"github.com/clearpath-io/support-rag/internal/models"
)

func testRetriever() *Retriever {
	matrix := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.6, 0.8, 0},
		{0, 0, 1},
	}
	chunks := []models.Chunk{
		{ChunkID: "a"},
		{ChunkID: "b"},
		{ChunkID: "c"},
		{ChunkID: "d"},
	}
	return NewRetriever(matrix, chunks)
}

func TestSearch_RanksByDescendingScore(t *testing.T) {
	r := testRetriever()

	results := r.Search([]float32{0.6, 0.8, 0}, 5, 0.25)

	wantIDs := []string{"c", "b", "a"}
	if len(results) != len(wantIDs) {
		t.Fatalf("Search() returned %d results, want %d", len(results), len(wantIDs))
	}
	for i, want := range wantIDs {
		if results[i].Chunk.ChunkID != want {
			t.Errorf("results[%d] = %q, want %q", i, results[i].Chunk.ChunkID, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not descending: %f before %f", results[i-1].Score, results[i].Score)
		}
	}
}

func TestSearch_FiltersBelowThreshold(t *testing.T) {
	r := testRetriever()

	results := r.Search([]float32{1, 0, 0}, 5, 0.25)

	// Scores: a=1.0, c=0.6, b=0, d=0; the zero scores fall below threshold
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Chunk.ChunkID != "a" || results[1].Chunk.ChunkID != "c" {
		t.Errorf("results = %q, %q, want a, c", results[0].Chunk.ChunkID, results[1].Chunk.ChunkID)
	}
	if results[0].Score != 1.0 {
		t.Errorf("top score = %f, want 1.0", results[0].Score)
	}
}

func TestSearch_TopKTruncates(t *testing.T) {
	r := testRetriever()

	results := r.Search([]float32{0.6, 0.8, 0}, 1, 0.25)

	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if results[0].Chunk.ChunkID != "c" {
		t.Errorf("top result = %q, want c", results[0].Chunk.ChunkID)
	}
}

func TestSearch_AllBelowThresholdReturnsEmpty(t *testing.T) {
	r := testRetriever()

	results := r.Search([]float32{-1, 0, 0}, 5, 0.25)

	if len(results) != 0 {
		t.Errorf("Search() returned %d results, want 0", len(results))
	}
}

func TestSearch_ThresholdIsInclusive(t *testing.T) {
	matrix := [][]float32{{0.25, 0, 0}}
	chunks := []models.Chunk{{ChunkID: "edge"}}
	r := NewRetriever(matrix, chunks)

	results := r.Search([]float32{1, 0, 0}, 5, 0.25)

	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want the exact-threshold match kept", len(results))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	r := NewRetriever(nil, nil)

	if results := r.Search([]float32{1, 0, 0}, 5, 0.25); len(results) != 0 {
		t.Errorf("Search() on empty index returned %d results, want 0", len(results))
	}
}

func TestSearch_ZeroTopK(t *testing.T) {
	r := testRetriever()

	if results := r.Search([]float32{1, 0, 0}, 0, 0.25); len(results) != 0 {
		t.Errorf("Search() with topK 0 returned %d results, want 0", len(results))
	}
}
