package unsplash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Acquired is a photo available on local disk.
type Acquired struct {
	Path            string
	ID              string
	Description     string
	Photographer    string
	PhotographerURL string
	// Cached is true when the file was already present and not downloaded.
	Cached bool
}

// AcquireOptions tunes SearchAndDownload.
type AcquireOptions struct {
	// OnProgress is called after each photo is stored or found on disk.
	OnProgress func(done, total int, photo Photo)
}

// SearchAndDownload searches for query and stores up to count photos under
// cacheDir/<Slug(query)>/<id>.jpg, in provider order. Photos already on disk
// are neither downloaded nor tracked again.
func SearchAndDownload(ctx context.Context, c *Client, query string, count int, cacheDir string, opts AcquireOptions) ([]Acquired, error) {
	if count < 1 {
		return nil, fmt.Errorf("photo count must be at least 1, got %d", count)
	}
	photos, err := collect(ctx, c, query, count)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(cacheDir, Slug(query))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create download dir %s: %w", dir, err)
	}

	out := make([]Acquired, 0, len(photos))
	for i, p := range photos {
		dest := filepath.Join(dir, safeID(p.ID)+".jpg")
		a := Acquired{
			Path:            dest,
			ID:              p.ID,
			Description:     p.Description,
			Photographer:    p.Photographer,
			PhotographerURL: p.PhotographerURL,
		}

		_, statErr := os.Stat(dest)
		switch {
		case statErr == nil:
			a.Cached = true
		case !errors.Is(statErr, os.ErrNotExist):
			return nil, fmt.Errorf("cannot stat %s: %w", dest, statErr)
		default:
			if err := c.Download(ctx, p.RegularURL, dest); err != nil {
				return nil, err
			}
			if err := c.TrackDownload(ctx, p.DownloadLocation); err != nil {
				c.log.WithError(err).WithField("photo", p.ID).Warn("download tracking failed, ignoring")
			}
		}

		out = append(out, a)
		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(photos), p)
		}
	}
	return out, nil
}

// collect pages through search results until count unique, downloadable
// photos are found or results run out.
func collect(ctx context.Context, c *Client, query string, count int) ([]Photo, error) {
	perPage := count
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	seen := make(map[string]struct{})
	var out []Photo
	for page := 1; len(out) < count; page++ {
		photos, totalPages, err := c.SearchPhotos(ctx, query, perPage, page)
		if err != nil {
			return nil, err
		}
		for _, p := range photos {
			if len(out) == count {
				break
			}
			if p.RegularURL == "" || safeID(p.ID) == "" {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
		if len(photos) < perPage || page >= totalPages {
			break
		}
	}
	return out, nil
}
