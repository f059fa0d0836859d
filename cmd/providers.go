package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kamusis/imgsearch/internal/apperr"
	"github.com/kamusis/imgsearch/internal/config"
	"github.com/kamusis/imgsearch/internal/embeddings"
	"github.com/kamusis/imgsearch/internal/imageindex"
	"github.com/kamusis/imgsearch/internal/images"
	"github.com/kamusis/imgsearch/internal/unsplash"
	"github.com/kamusis/imgsearch/internal/vision"
)

// commandTimeout bounds one command's provider work.
const commandTimeout = 30 * time.Minute

// providers holds the adapters built once per command.
type providers struct {
	describer *vision.Describer
	embedder  embeddings.Provider
}

// newProviders resolves the OpenAI credential and builds both adapters.
func newProviders(cfg *config.Config) (*providers, error) {
	key, err := config.RequireOpenAIKey()
	if err != nil {
		return nil, err
	}
	baseURL := config.OpenAIBaseURL(cfg.OpenAI.BaseURL)

	d, err := vision.New(vision.Config{
		Model:     cfg.OpenAI.VisionModel,
		APIKey:    key,
		BaseURL:   baseURL,
		Prompt:    cfg.OpenAI.Prompt,
		MaxTokens: cfg.OpenAI.MaxTokens,
		Timeout:   cfg.OpenAI.Timeout,
	})
	if err != nil {
		return nil, err
	}
	e, err := embeddings.New(&embeddings.Config{
		Model:   cfg.OpenAI.EmbeddingModel,
		APIKey:  key,
		BaseURL: baseURL,
		Timeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &providers{describer: d, embedder: e}, nil
}

// indexModelID is the cache validity key for cfg: descriptions depend on the
// vision model and vectors on the embedding model.
func indexModelID(cfg *config.Config) string {
	return "openai:" + cfg.OpenAI.VisionModel + "+openai:" + cfg.OpenAI.EmbeddingModel
}

// newIndexCache builds the index cache for p. The returned close function
// releases the record store when incremental mode is on.
func newIndexCache(cfg *config.Config, p *providers, showProgress bool) (*imageindex.Cache, func(), error) {
	opts := imageindex.Options{
		Logger:  logger,
		ModelID: indexModelID(cfg),
	}
	if showProgress {
		opts.Progress = describeProgress()
	}

	closeFn := func() {}
	if cfg.Incremental {
		store, err := imageindex.OpenBoltStore(cfg.RecordStore)
		if err != nil {
			return nil, closeFn, err
		}
		opts.Store = store
		closeFn = func() { _ = store.Close() }
	}
	return imageindex.New(p.describer, p.embedder, opts), closeFn, nil
}

// describeProgress returns a progress callback that draws a bar on stderr once
// the first image has been processed.
func describeProgress() func(done, total int, path string) {
	var bar *progressbar.ProgressBar
	return func(done, total int, _ string) {
		if bar == nil {
			bar = newBar(total, "[cyan]Describing[reset]")
		}
		_ = bar.Set(done)
	}
}

func newBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// resolveImages lists the images of dir and returns them with the cache
// location for that directory.
func resolveImages(cfg *config.Config, dir string) ([]string, string, error) {
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return nil, "", err
	}
	paths, err := images.MustHave(dir, cfg.ImagePatterns)
	if err != nil {
		if errors.Is(err, images.ErrNoImages) {
			return nil, "", &apperr.ConfigError{
				Key:     "--images-dir",
				Problem: fmt.Sprintf("no images found in %s", dir),
				Remedy:  fmt.Sprintf("Add files matching %v or point --images-dir elsewhere.", cfg.ImagePatterns),
				Err:     err,
			}
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", &apperr.ConfigError{
				Key:     "--images-dir",
				Problem: fmt.Sprintf("%s does not exist", dir),
				Remedy:  "Point --images-dir (or images_dir in imgsearch.yaml) at an existing directory.",
				Err:     err,
			}
		}
		return nil, "", err
	}
	return paths, imageindex.CachePath(dir, cfg.CacheFile), nil
}

// newUnsplashClient resolves the Unsplash credential and builds the client.
func newUnsplashClient(cfg *config.Config) (*unsplash.Client, error) {
	key, err := config.RequireUnsplashKey()
	if err != nil {
		return nil, err
	}
	return unsplash.New(unsplash.Config{
		AccessKey:         key,
		BaseURL:           cfg.Unsplash.BaseURL,
		Orientation:       cfg.Unsplash.Orientation,
		Timeout:           cfg.Unsplash.Timeout,
		RequestsPerSecond: cfg.Unsplash.RequestsPerSecond,
		Logger:            logger,
	})
}

// explainUnsplashError adds a remedy to recoverable photo provider failures.
func explainUnsplashError(err error) error {
	var authErr *apperr.AuthError
	var rateErr *apperr.RateLimitError
	var netErr *apperr.NetworkError
	switch {
	case errors.As(err, &authErr):
		return &apperr.ConfigError{
			Key:     config.UnsplashKeyEnv,
			Problem: "Unsplash rejected the access key (invalid or expired)",
			Remedy:  config.UnsplashKeySteps,
		}
	case errors.As(err, &rateErr):
		return fmt.Errorf("%w\n  Demo applications allow 50 requests per hour; wait and try again", err)
	case errors.As(err, &netErr):
		if netErr.Timeout {
			return fmt.Errorf("%w\n  Unsplash did not answer in time; check your connection and try again", err)
		}
		return fmt.Errorf("%w\n  Cannot reach Unsplash; check your connection and try again", err)
	}
	return err
}

// topicDir is where photos for topic are stored.
func topicDir(cfg *config.Config, topic string) string {
	return filepath.Join(cfg.Unsplash.CacheDir, unsplash.Slug(topic))
}
