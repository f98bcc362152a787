// ABOUTME: Groq chat completion client over the OpenAI-compatible API
// ABOUTME: Retries rate limits and brief outages, tracks tokens and latency
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath-io/support-rag/internal/config"
	"github.com/clearpath-io/support-rag/internal/util"
)

// generationTemperature keeps answers grounded in the provided context.
const generationTemperature = 0.3

// Result is one completed generation with usage and timing.
type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
}

// Client wraps the Groq chat completions API with retry logic.
type Client struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewClient builds a client for the configured Groq endpoint.
func NewClient(cfg *config.Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	clientConfig.BaseURL = cfg.GroqBaseURL

	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientConfig),
		maxRetries: retries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
	}
}

// Generate runs a non-streaming completion. Rate limits and brief outages
// are retried with backoff; any other failure returns immediately.
func (c *Client) Generate(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.Backoff(c.retryDelay, attempt))
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: generationTemperature,
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if !retryable(err) || ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		return &Result{
			Content:          resp.Choices[0].Message.Content,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			LatencyMS:        time.Since(start).Milliseconds(),
		}, nil
	}

	return nil, fmt.Errorf("generation failed after %d attempts: %w", c.maxRetries, lastErr)
}

// GenerateStream streams token deltas to onToken and returns the final
// content, usage, and timing. A retryable failure before any token was
// emitted restarts the stream; after tokens have flowed, failures are
// returned so the caller never sees duplicated output.
func (c *Client) GenerateStream(ctx context.Context, model string, messages []openai.ChatCompletionMessage, maxTokens int, onToken func(token string) error) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.Backoff(c.retryDelay, attempt))
		}

		start := time.Now()
		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:         model,
			Messages:      messages,
			MaxTokens:     maxTokens,
			Temperature:   generationTemperature,
			Stream:        true,
			StreamOptions: &openai.StreamOptions{IncludeUsage: true},
		})
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if !retryable(err) || ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		result, emitted, err := consumeStream(stream, start, onToken)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if emitted || !retryable(err) || ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		return result, nil
	}

	return nil, fmt.Errorf("streaming generation failed after %d attempts: %w", c.maxRetries, lastErr)
}

// consumeStream drains one stream, reporting whether any token reached
// the callback.
func consumeStream(stream *openai.ChatCompletionStream, start time.Time, onToken func(string) error) (*Result, bool, error) {
	defer stream.Close()

	var content strings.Builder
	var promptTokens, completionTokens int
	emitted := false

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, emitted, err
		}

		if len(resp.Choices) > 0 {
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				emitted = true
				content.WriteString(delta)
				if err := onToken(delta); err != nil {
					return nil, emitted, fmt.Errorf("token callback: %w", err)
				}
			}
		}
		// Usage arrives in the final chunk, with no choices
		if resp.Usage != nil {
			promptTokens = resp.Usage.PromptTokens
			completionTokens = resp.Usage.CompletionTokens
		}
	}

	return &Result{
		Content:          content.String(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		LatencyMS:        time.Since(start).Milliseconds(),
	}, emitted, nil
}

// retryable reports whether err is a rate limit or a brief outage status.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429, 503, 529:
			return true
		}
	}
	return false
}
