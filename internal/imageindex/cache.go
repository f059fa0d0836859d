package imageindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kamusis/imgsearch/internal/apperr"
)

// DefaultCacheFile is the cache file name placed inside an indexed directory.
const DefaultCacheFile = ".embeddings_cache_openai.idx"

// Describer turns raw image bytes into a text description.
type Describer interface {
	DescribeImage(ctx context.Context, image []byte) (string, error)
}

// Embedder embeds a batch of texts, one vector per text, in input order.
type Embedder interface {
	ModelID() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options controls how a Cache loads and builds indexes.
type Options struct {
	Logger logrus.FieldLogger
	// Progress is called after each image is described or reused.
	Progress func(done, total int, path string)
	// ModelID overrides the embedder's model id as the cache validity key.
	// Callers should fold the description model into it.
	ModelID string
	// Store enables incremental rebuilds when set.
	Store RecordStore
	// LockTimeout bounds the wait for the cache write lock.
	LockTimeout time.Duration
}

// BuildStats reports what a GetOrBuild call did.
type BuildStats struct {
	Hit        bool
	MissReason string
	Described  int
	Reused     int
	// PersistErr is set when the rebuilt index could not be written. The
	// index itself is still valid.
	PersistErr error
}

// Cache loads image indexes from disk or builds them through the providers.
type Cache struct {
	describer Describer
	embedder  Embedder
	opts      Options
}

// New returns a Cache using d to describe images and e to embed descriptions.
func New(d Describer, e Embedder, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 2 * time.Second
	}
	return &Cache{describer: d, embedder: e, opts: opts}
}

// ModelID returns the id stored in and checked against cache files.
func (c *Cache) ModelID() string {
	if c.opts.ModelID != "" {
		return c.opts.ModelID
	}
	return c.embedder.ModelID()
}

// CachePath returns the cache location for an indexed directory.
func CachePath(dir, fileName string) string {
	if fileName == "" {
		fileName = DefaultCacheFile
	}
	return filepath.Join(dir, fileName)
}

// GetOrBuild returns the index for paths, served from cacheLocation when the
// stored path list equals paths exactly and the model id matches.
func (c *Cache) GetOrBuild(ctx context.Context, paths []string, cacheLocation string) (*Index, error) {
	idx, _, err := c.Resolve(ctx, paths, cacheLocation)
	return idx, err
}

// Resolve is GetOrBuild with build statistics.
func (c *Cache) Resolve(ctx context.Context, paths []string, cacheLocation string) (*Index, BuildStats, error) {
	var stats BuildStats
	if len(paths) == 0 {
		return nil, stats, ErrNoImages
	}
	log := c.opts.Logger.WithField("cache", cacheLocation)

	old, reason := c.check(log, paths, cacheLocation)
	if reason == "" {
		stats.Hit = true
		log.WithField("images", old.Len()).Debug("image index served from cache")
		return old, stats, nil
	}
	stats.MissReason = reason
	log.WithField("reason", stats.MissReason).Info("rebuilding image index")

	idx, err := c.build(ctx, paths, &stats)
	if err != nil {
		return nil, stats, err
	}

	if err := c.persist(cacheLocation, idx); err != nil {
		stats.PersistErr = err
		log.WithError(err).Warn("could not save image index; it will be rebuilt next time")
	}
	return idx, stats, nil
}

// Status reports whether cacheLocation holds a usable index for paths under
// modelID. It returns the cached index when usable, otherwise the reason it is
// not and, for files that exist but cannot be read, the load error.
func Status(cacheLocation string, paths []string, modelID string) (*Index, string, error) {
	old, err := Load(cacheLocation)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, "no cache file", nil
	case err != nil:
		return nil, "cache unreadable", err
	case old.Manifest.ModelID != modelID:
		return nil, "model changed", nil
	case !old.Matches(paths):
		return nil, "image set changed", nil
	}
	return old, "", nil
}

func (c *Cache) check(log logrus.FieldLogger, paths []string, cacheLocation string) (*Index, string) {
	old, reason, err := Status(cacheLocation, paths, c.ModelID())
	if err != nil {
		log.WithError(err).Warn("ignoring unreadable image index cache")
	} else if reason == "no cache file" {
		log.Debug("no cached image index")
	}
	if old != nil && c.opts.Store != nil {
		if changed := ContentChanged(old); changed != "" {
			log.WithField("path", changed).Debug("image content changed since the index was built")
			return nil, "image content changed"
		}
	}
	return old, reason
}

// ContentChanged returns the first path of idx whose current bytes no longer
// hash to the stored content hash, or "" when all match. An index without
// hashes counts as changed at its first path.
func ContentChanged(idx *Index) string {
	if !idx.hashed() {
		return idx.Paths[0]
	}
	for _, r := range idx.Records {
		b, err := os.ReadFile(r.Path)
		if err != nil || ContentHash(b) != r.ContentHash {
			return r.Path
		}
	}
	return ""
}

func (c *Cache) build(ctx context.Context, paths []string, stats *BuildStats) (*Index, error) {
	modelID := c.ModelID()
	records := make([]Record, len(paths))
	var pending []int

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read image %s: %w", p, err)
		}
		records[i].Path = p

		if c.opts.Store != nil {
			records[i].ContentHash = ContentHash(b)
			rec, ok, err := c.opts.Store.Get(modelID, records[i].ContentHash)
			if err != nil {
				c.opts.Logger.WithError(err).WithField("path", p).Warn("record store lookup failed")
			} else if ok {
				records[i].Description = rec.Description
				records[i].Embedding = rec.Embedding
				stats.Reused++
				c.progress(i+1, len(paths), p)
				continue
			}
		}

		desc, err := c.describer.DescribeImage(ctx, b)
		if err != nil {
			return nil, err
		}
		records[i].Description = desc
		pending = append(pending, i)
		stats.Described++
		c.progress(i+1, len(paths), p)
	}

	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for j, i := range pending {
			texts[j] = records[i].Description
		}
		vecs, err := c.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, &apperr.ProviderError{
				Service: "embeddings",
				Op:      "embed",
				Err:     fmt.Errorf("got %d vectors for %d descriptions", len(vecs), len(texts)),
			}
		}
		vecs = NormalizeRows(vecs)
		for j, i := range pending {
			records[i].Embedding = vecs[j]
			if c.opts.Store != nil {
				rec := StoredRecord{Description: records[i].Description, Embedding: records[i].Embedding}
				if err := c.opts.Store.Put(modelID, records[i].ContentHash, rec); err != nil {
					c.opts.Logger.WithError(err).WithField("path", records[i].Path).Warn("record store write failed")
				}
			}
		}
	}

	dim := len(records[0].Embedding)
	for _, r := range records {
		if len(r.Embedding) != dim || dim == 0 {
			return nil, fmt.Errorf("embedding dim mismatch for %s: got %d want %d", r.Path, len(r.Embedding), dim)
		}
	}

	return &Index{
		Manifest: Manifest{
			FormatVersion: FormatVersion,
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
			ModelID:       modelID,
			Dim:           dim,
		},
		Paths:   append([]string(nil), paths...),
		Records: records,
	}, nil
}

func (c *Cache) persist(cacheLocation string, idx *Index) error {
	unlock, err := acquireWriteLock(cacheLocation, c.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()
	return Write(cacheLocation, idx)
}

func (c *Cache) progress(done, total int, path string) {
	if c.opts.Progress != nil {
		c.opts.Progress(done, total, path)
	}
}

// Invalidate removes the cache file at cacheLocation. A missing file is not
// an error.
func Invalidate(cacheLocation string) error {
	if err := os.Remove(cacheLocation); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot remove cache file %s: %w", cacheLocation, err)
	}
	_ = os.Remove(cacheLocation + ".lock")
	return nil
}
