// Package images finds the image files an index is built from.
package images

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kamusis/imgsearch/internal/config"
	"github.com/kamusis/imgsearch/internal/imageindex"
)

// ErrNoImages is returned when a directory holds no matching images.
var ErrNoImages = imageindex.ErrNoImages

// Discover returns the sorted paths of files under dir whose slash-separated
// relative path matches any of patterns, compared case-insensitively. Empty
// patterns mean config.DefaultImagePatterns.
// Hidden directories are skipped. Returned paths are dir joined with the
// relative path.
func Discover(dir string, patterns []string) ([]string, error) {
	lowered, err := lowerPatterns(patterns)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open images directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("images path is not a directory: %s", dir)
	}

	var out []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if matchAny(lowered, strings.ToLower(filepath.ToSlash(rel))) {
			out = append(out, filepath.Join(dir, rel))
		}
		return nil
	}
	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, fmt.Errorf("cannot scan images: %w", err)
	}

	sort.Strings(out)
	return out, nil
}

// MustHave is Discover that reports ErrNoImages for an empty result.
func MustHave(dir string, patterns []string) ([]string, error) {
	paths, err := Discover(dir, patterns)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	return paths, nil
}

func lowerPatterns(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = config.DefaultImagePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(filepath.ToSlash(p))
		if !doublestar.ValidatePattern(lowered[i]) {
			return nil, fmt.Errorf("invalid image pattern %q", p)
		}
	}
	return lowered, nil
}

// Matcher returns a predicate reporting whether path (under dir) would be
// returned by Discover with the same patterns.
func Matcher(dir string, patterns []string) (func(path string) bool, error) {
	lowered, err := lowerPatterns(patterns)
	if err != nil {
		return nil, err
	}
	return func(path string) bool {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return false
		}
		for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
			if strings.HasPrefix(part, ".") && part != "." {
				return false
			}
		}
		return matchAny(lowered, strings.ToLower(filepath.ToSlash(rel)))
	}, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
