package imageindex

import (
	"errors"
	"fmt"
)

// ErrVectorLengthMismatch indicates two vectors have different dimensions.
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// ErrNoImages is returned when an index is requested for an empty path list.
var ErrNoImages = errors.New("no images to index")

// CacheCorruptError reports a cache file that exists but cannot be used.
// GetOrBuild treats it as a miss and rebuilds.
type CacheCorruptError struct {
	Path string
	Err  error
}

func (e *CacheCorruptError) Error() string {
	return fmt.Sprintf("cache file %s is unusable: %v", e.Path, e.Err)
}

func (e *CacheCorruptError) Unwrap() error { return e.Err }
