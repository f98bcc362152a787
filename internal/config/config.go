// ABOUTME: Centralized configuration for the ClearPath support assistant
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the RAG pipeline and service.
type Config struct {
	// Server settings
	Port int

	// Groq settings (generation)
	GroqAPIKey   string
	GroqBaseURL  string
	SimpleModel  string
	ComplexModel string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration

	// Embedding settings (any OpenAI-compatible embeddings endpoint)
	EmbeddingBaseURL   string
	EmbeddingAPIKey    string
	EmbeddingModel     string
	EmbeddingBatchSize int

	// RAG pipeline settings
	ChunkSize           int
	ChunkOverlap        int
	MinChunkTokens      int
	TopK                int
	SimilarityThreshold float64

	// Generation budgets
	SimpleMaxTokens  int
	ComplexMaxTokens int

	// Paths
	DocsDir  string
	IndexDir string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnvInt("PORT", 8000),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:         getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		SimpleModel:         getEnv("SIMPLE_MODEL", "llama-3.1-8b-instant"),
		ComplexModel:        getEnv("COMPLEX_MODEL", "llama-3.3-70b-versatile"),
		Timeout:             getEnvDuration("GROQ_TIMEOUT", 30*time.Second),
		MaxRetries:          getEnvInt("GROQ_MAX_RETRIES", 3),
		RetryDelay:          getEnvDuration("GROQ_RETRY_DELAY", time.Second),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", "http://localhost:8080/v1"),
		EmbeddingAPIKey:     os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingBatchSize:  getEnvInt("EMBEDDING_BATCH_SIZE", 64),
		ChunkSize:           getEnvInt("CHUNK_SIZE", 400),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 60),
		MinChunkTokens:      getEnvInt("MIN_CHUNK_TOKENS", 80),
		TopK:                getEnvInt("TOP_K", 5),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.25),
		SimpleMaxTokens:     getEnvInt("SIMPLE_MAX_TOKENS", 512),
		ComplexMaxTokens:    getEnvInt("COMPLEX_MAX_TOKENS", 1024),
		DocsDir:             getEnv("DOCS_DIR", "docs"),
		IndexDir:            getEnv("INDEX_DIR", "index"),
	}

	return cfg, cfg.Validate()
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be 0-1, got %f", c.SimilarityThreshold)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.MinChunkTokens < 0 || c.MinChunkTokens > c.ChunkSize {
		return fmt.Errorf("MIN_CHUNK_TOKENS must be in [0, CHUNK_SIZE], got %d", c.MinChunkTokens)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("GROQ_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
