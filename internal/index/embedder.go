// ABOUTME: Embedding client for any OpenAI-compatible embeddings endpoint
// ABOUTME: Batches inputs and retries transient failures with backoff
package index

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/util"
)

// Embedder produces one raw embedding vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingClient calls an OpenAI-compatible embeddings API.
type EmbeddingClient struct {
	client     *openai.Client
	model      string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewEmbeddingClient creates a client for the configured embeddings endpoint.
func NewEmbeddingClient(cfg *config.Config) *EmbeddingClient {
	clientConfig := openai.DefaultConfig(cfg.EmbeddingAPIKey)
	clientConfig.BaseURL = cfg.EmbeddingBaseURL

	batchSize := cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	return &EmbeddingClient{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.EmbeddingModel,
		batchSize:  batchSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
	}
}

// Embed returns one vector per input text, preserving input order.
// Inputs are sent in batches sized for the API.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedBatch embeds a single batch with retries.
func (c *EmbeddingClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.Backoff(c.retryDelay, attempt))
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input: batch,
			Model: openai.EmbeddingModel(c.model),
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(resp.Data) != len(batch) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d inputs", attempt+1, len(resp.Data), len(batch))
			continue
		}

		// The API reports each vector's input position; order by it
		vectors := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("embedding index %d out of range for batch of %d", d.Index, len(batch))
			}
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("failed to embed batch after %d attempts: %w", c.maxRetries+1, lastErr)
}
