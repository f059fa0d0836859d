package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kamusis/imgsearch/internal/apperr"
)

type openAIProvider struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAI constructs an OpenAI-compatible embeddings provider.
//
// It uses the REST endpoint:
//
//	POST {baseURL}/embeddings
//
// with JSON body:
//
//	{"model": "...", "input": ["...", "..."]}
//
// All texts go out in one request.
func NewOpenAI(cfg *Config) Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &openAIProvider{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *openAIProvider) ModelID() string {
	return "openai:" + p.model
}

func (p *openAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, p.fail(0, errors.New("cannot embed an empty batch"))
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, p.fail(0, fmt.Errorf("cannot embed empty text at position %d", i))
		}
	}

	b, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(b))
	if err != nil {
		return nil, p.fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.fail(0, apperr.Transport("openai", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.fail(resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, p.fail(resp.StatusCode, fmt.Errorf("cannot parse embeddings response: %w", err))
	}
	if parsed.Error != nil {
		return nil, p.fail(resp.StatusCode, errors.New(parsed.Error.Message))
	}
	if len(parsed.Data) != len(texts) {
		return nil, p.fail(resp.StatusCode, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(parsed.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	dim := 0
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, p.fail(resp.StatusCode, fmt.Errorf("embeddings response has invalid index %d", d.Index))
		}
		if len(d.Embedding) == 0 {
			return nil, p.fail(resp.StatusCode, fmt.Errorf("embeddings response missing embedding for index %d", d.Index))
		}
		if dim == 0 {
			dim = len(d.Embedding)
		}
		if len(d.Embedding) != dim {
			return nil, p.fail(resp.StatusCode, fmt.Errorf("embedding dim changed within batch: got %d want %d", len(d.Embedding), dim))
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		out[d.Index] = v
	}
	return out, nil
}

func (p *openAIProvider) fail(status int, err error) error {
	return &apperr.ProviderError{Service: "openai", Op: "embed", StatusCode: status, Err: err}
}
