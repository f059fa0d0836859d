package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider embeds texts into fixed-length float vectors.
//
// Embed returns exactly one vector per input text, in input order.
// Implementations must be deterministic for the same input text and model.
type Provider interface {
	ModelID() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config contains the resolved embeddings configuration.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// New returns the OpenAI-compatible embeddings provider for cfg.
func New(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embeddings config is nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("embeddings model is not configured (set openai.embedding_model)")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("embeddings API key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return NewOpenAI(cfg), nil
}
