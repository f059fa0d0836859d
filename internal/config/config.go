package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig controls the description and embedding provider.
type OpenAIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	VisionModel    string        `yaml:"vision_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	MaxTokens      int           `yaml:"max_tokens"`
	Prompt         string        `yaml:"prompt"`
	Timeout        time.Duration `yaml:"timeout"`
}

// UnsplashConfig controls photo acquisition.
type UnsplashConfig struct {
	BaseURL           string        `yaml:"base_url"`
	CacheDir          string        `yaml:"cache_dir"`
	Count             int           `yaml:"count"`
	Orientation       string        `yaml:"orientation"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// SearchConfig holds ranking defaults.
type SearchConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the in-memory representation of ~/.imgsearch/imgsearch.yaml.
type Config struct {
	ImagesDir     string         `yaml:"images_dir"`
	ImagePatterns []string       `yaml:"image_patterns,omitempty"`
	CacheFile     string         `yaml:"cache_file"`
	Incremental   bool           `yaml:"incremental"`
	RecordStore   string         `yaml:"record_store,omitempty"`
	OpenAI        OpenAIConfig   `yaml:"openai"`
	Unsplash      UnsplashConfig `yaml:"unsplash"`
	Search        SearchConfig   `yaml:"search"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// DefaultDescribePrompt asks the vision model for a description rich enough to embed.
const DefaultDescribePrompt = "Describe this image in detail, including objects, actions, setting, " +
	"colors and atmosphere. Be specific and descriptive."

// DefaultImagePatterns are matched case-insensitively against paths relative
// to the images directory.
var DefaultImagePatterns = []string{"*.jpg", "*.jpeg", "*.png", "*.webp", "*.bmp"}

// AppDir returns the absolute path to ~/.imgsearch/.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".imgsearch"), nil
}

// ConfigPath returns the absolute path to ~/.imgsearch/imgsearch.yaml.
func ConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "imgsearch.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the configuration used when no file exists and the
// one written by imgsearch init.
func DefaultConfig() *Config {
	return &Config{
		ImagesDir:     "./images",
		ImagePatterns: append([]string(nil), DefaultImagePatterns...),
		CacheFile:     ".embeddings_cache_openai.idx",
		Incremental:   false,
		RecordStore:   "~/.imgsearch/records.db",
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			VisionModel:    "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			MaxTokens:      300,
			Prompt:         DefaultDescribePrompt,
			Timeout:        60 * time.Second,
		},
		Unsplash: UnsplashConfig{
			BaseURL:           "https://api.unsplash.com",
			CacheDir:          "~/.imgsearch/unsplash",
			Count:             15,
			Orientation:       "landscape",
			RequestsPerSecond: 5,
			Timeout:           10 * time.Second,
		},
		Search: SearchConfig{
			TopK:     1,
			MinScore: 0,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads ~/.imgsearch/imgsearch.yaml on top of the defaults. A missing
// file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the YAML config at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.expand()
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, cfg.expand()
}

// Save marshals cfg and writes it to ~/.imgsearch/imgsearch.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CacheFile) == "" {
		return fmt.Errorf("cache_file must not be empty")
	}
	if strings.ContainsAny(c.CacheFile, `/\`) {
		return fmt.Errorf("cache_file must be a file name, got %q", c.CacheFile)
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("openai.max_tokens must be positive, got %d", c.OpenAI.MaxTokens)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be >= 1, got %d", c.Search.TopK)
	}
	if c.Unsplash.Count < 1 {
		return fmt.Errorf("unsplash.count must be >= 1, got %d", c.Unsplash.Count)
	}
	if c.Unsplash.RequestsPerSecond < 0 {
		return fmt.Errorf("unsplash.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) expand() error {
	var err error
	if c.RecordStore, err = ExpandPath(c.RecordStore); err != nil {
		return err
	}
	if c.Unsplash.CacheDir, err = ExpandPath(c.Unsplash.CacheDir); err != nil {
		return err
	}
	c.ImagesDir, err = ExpandPath(c.ImagesDir)
	if len(c.ImagePatterns) == 0 {
		c.ImagePatterns = append([]string(nil), DefaultImagePatterns...)
	}
	return err
}
