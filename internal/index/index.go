// ABOUTME: Vector index owning the embedding matrix and chunk metadata
// ABOUTME: Persists both as one unit, joined by array position, under the index dir
package index

import (
	"compress/gzip"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/clearpath-io/support-rag/internal/models"
)

const (
	embeddingsFile = "embeddings.bin.gz"
	chunksFile     = "chunks.json"
)

// Index holds L2-normalized chunk embeddings and their metadata. The two
// persisted artifacts are joined by array position, so their lengths must
// always match. After Build or Load the index is read-only.
type Index struct {
	embedder Embedder
	dir      string

	matrix [][]float32
	chunks []models.Chunk
}

// NewIndex creates an empty index rooted at indexDir.
func NewIndex(embedder Embedder, indexDir string) *Index {
	return &Index{embedder: embedder, dir: indexDir}
}

// HasCachedIndex reports whether both persisted artifacts exist on disk.
func (ix *Index) HasCachedIndex() bool {
	if _, err := os.Stat(ix.embeddingsPath()); err != nil {
		return false
	}
	if _, err := os.Stat(ix.chunksPath()); err != nil {
		return false
	}
	return true
}

// LoadIndex reads both artifacts from disk. A row-count mismatch between
// them means the cache is corrupt; that is returned as an error and the
// caller should treat it as fatal rather than serve a misaligned index.
func (ix *Index) LoadIndex() error {
	matrix, err := readEmbeddings(ix.embeddingsPath())
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}

	data, err := os.ReadFile(ix.chunksPath())
	if err != nil {
		return fmt.Errorf("failed to load chunk metadata: %w", err)
	}
	var chunks []models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return fmt.Errorf("failed to parse chunk metadata: %w", err)
	}

	if len(matrix) != len(chunks) {
		return fmt.Errorf("index artifacts misaligned: %d embeddings vs %d chunks", len(matrix), len(chunks))
	}

	ix.matrix = matrix
	ix.chunks = chunks
	slog.Info("index loaded", "chunks", len(chunks), "dim", ix.dim())
	return nil
}

// BuildIndex embeds every chunk, normalizes the vectors, and persists the
// matrix and metadata together. Rebuilding from the same chunks replaces
// any previous artifacts wholesale.
func (ix *Index) BuildIndex(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return errors.New("cannot build index from zero chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for _, v := range vectors {
		normalize(v)
	}

	ix.matrix = vectors
	ix.chunks = chunks

	if err := ix.save(); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	slog.Info("index built", "chunks", len(chunks), "dim", ix.dim())
	return nil
}

// EmbedQuery embeds a single query and returns the normalized vector.
func (ix *Index) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned for query")
	}
	vec := vectors[0]
	normalize(vec)
	return vec, nil
}

// Matrix returns the normalized embedding rows.
func (ix *Index) Matrix() [][]float32 {
	return ix.matrix
}

// Chunks returns the metadata aligned with Matrix by position.
func (ix *Index) Chunks() []models.Chunk {
	return ix.chunks
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	return len(ix.chunks)
}

func (ix *Index) embeddingsPath() string {
	return filepath.Join(ix.dir, embeddingsFile)
}

func (ix *Index) chunksPath() string {
	return filepath.Join(ix.dir, chunksFile)
}

func (ix *Index) dim() int {
	if len(ix.matrix) == 0 {
		return 0
	}
	return len(ix.matrix[0])
}

// save writes both artifacts. The matrix goes to a gzipped binary file
// with a count and dimension header followed by little-endian float32 rows.
func (ix *Index) save() error {
	if err := os.MkdirAll(ix.dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	if err := writeEmbeddings(ix.embeddingsPath(), ix.matrix); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ix.chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	if err := os.WriteFile(ix.chunksPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write chunk metadata: %w", err)
	}
	return nil
}

func writeEmbeddings(path string, matrix [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create embeddings file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)

	dim := 0
	if len(matrix) > 0 {
		dim = len(matrix[0])
	}
	if err := binary.Write(gz, binary.LittleEndian, uint32(len(matrix))); err != nil {
		return fmt.Errorf("failed to write embeddings header: %w", err)
	}
	if err := binary.Write(gz, binary.LittleEndian, uint32(dim)); err != nil {
		return fmt.Errorf("failed to write embeddings header: %w", err)
	}
	for _, row := range matrix {
		if len(row) != dim {
			return fmt.Errorf("ragged embedding matrix: row has %d values, want %d", len(row), dim)
		}
		if err := binary.Write(gz, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("failed to write embedding row: %w", err)
		}
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish embeddings file: %w", err)
	}
	return f.Close()
}

func readEmbeddings(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	var count, dim uint32
	if err := binary.Read(gz, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read embeddings header: %w", err)
	}
	if err := binary.Read(gz, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("failed to read embeddings header: %w", err)
	}

	matrix := make([][]float32, count)
	for i := range matrix {
		row := make([]float32, dim)
		if err := binary.Read(gz, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("failed to read embedding row %d: %w", i, err)
		}
		matrix[i] = row
	}
	return matrix, nil
}

// normalize scales vec to unit length in place. Zero vectors stay zero.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
