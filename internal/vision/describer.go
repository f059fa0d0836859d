// Package vision describes images through an OpenAI-compatible chat model.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kamusis/imgsearch/internal/apperr"
)

// Config contains the resolved description provider configuration.
type Config struct {
	Model     string
	APIKey    string
	BaseURL   string
	Prompt    string
	MaxTokens int
	Timeout   time.Duration
}

// Describer describes images via POST {baseURL}/chat/completions.
type Describer struct {
	model     string
	apiKey    string
	baseURL   string
	prompt    string
	maxTokens int
	client    *http.Client
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New validates cfg and returns a Describer.
func New(cfg Config) (*Describer, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("vision model is not configured (set openai.vision_model)")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("vision API key is empty")
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, fmt.Errorf("vision prompt is empty")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Describer{
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		prompt:    cfg.Prompt,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ModelID identifies the description model.
func (d *Describer) ModelID() string {
	return "openai:" + d.model
}

// DescribeImage returns a text description of image. The MIME type sent
// with the image is sniffed from its bytes.
func (d *Describer) DescribeImage(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", d.fail(0, errors.New("image is empty"))
	}

	body := chatRequest{
		Model: d.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: d.prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: DataURL(image)}},
			},
		}},
		MaxTokens: d.maxTokens,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", d.fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", d.fail(0, apperr.Transport("openai", err))
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", d.fail(resp.StatusCode, errors.New(strings.TrimSpace(string(rb))))
	}

	var parsed chatResponse
	if err := json.Unmarshal(rb, &parsed); err != nil {
		return "", d.fail(resp.StatusCode, fmt.Errorf("cannot parse chat response: %w", err))
	}
	if parsed.Error != nil {
		return "", d.fail(resp.StatusCode, errors.New(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", d.fail(resp.StatusCode, errors.New("chat response has no choices"))
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", d.fail(resp.StatusCode, errors.New("model returned an empty description"))
	}
	return text, nil
}

func (d *Describer) fail(status int, err error) error {
	return &apperr.ProviderError{Service: "openai", Op: "describe", StatusCode: status, Err: err}
}

// DataURL encodes image as a base64 data URL.
func DataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
