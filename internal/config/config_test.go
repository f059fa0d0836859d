package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OpenAI.VisionModel != "gpt-4o-mini" {
		t.Errorf("expected vision model gpt-4o-mini, got %q", cfg.OpenAI.VisionModel)
	}
	if cfg.OpenAI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("expected embedding model text-embedding-3-small, got %q", cfg.OpenAI.EmbeddingModel)
	}
	if cfg.OpenAI.MaxTokens != 300 {
		t.Errorf("expected MaxTokens=300, got %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.Search.TopK != 1 {
		t.Errorf("expected TopK=1, got %d", cfg.Search.TopK)
	}
	if cfg.Incremental {
		t.Errorf("incremental mode must be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile_NonExistent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error for non-existent file, got %v", err)
	}
	if cfg.CacheFile != ".embeddings_cache_openai.idx" {
		t.Fatalf("expected default cache file, got %q", cfg.CacheFile)
	}
}

func TestLoadFile_ValidYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "imgsearch.yaml")

	content := `
images_dir: ~/pictures
incremental: true
openai:
  max_tokens: 120
  timeout: 5s
unsplash:
  count: 30
search:
  top_k: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ImagesDir != filepath.Join(home, "pictures") {
		t.Errorf("expected ~ expansion, got %q", cfg.ImagesDir)
	}
	if !cfg.Incremental {
		t.Errorf("expected incremental=true")
	}
	if cfg.OpenAI.MaxTokens != 120 {
		t.Errorf("expected MaxTokens=120, got %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.OpenAI.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.OpenAI.Timeout)
	}
	// Unset keys keep their defaults.
	if cfg.OpenAI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %q", cfg.OpenAI.EmbeddingModel)
	}
	if cfg.Search.TopK != 3 || cfg.Unsplash.Count != 30 {
		t.Errorf("unexpected search/unsplash values: %+v %+v", cfg.Search, cfg.Unsplash)
	}
	if len(cfg.ImagePatterns) == 0 {
		t.Errorf("expected default image patterns")
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "imgsearch.yaml")
	if err := os.WriteFile(path, []byte("cache_file: sub/dir.idx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for cache_file containing a separator")
	}

	if err := os.WriteFile(path, []byte("search: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for malformed YAML")
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Search.TopK = 4
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Search.TopK != 4 {
		t.Fatalf("expected TopK=4 after round trip, got %d", got.Search.TopK)
	}
	if got.OpenAI.Timeout != 60*time.Second {
		t.Fatalf("expected timeout to survive round trip, got %s", got.OpenAI.Timeout)
	}
}
