//go:build !windows

package imageindex

import "os"

// replaceFile renames src over dst.
func replaceFile(src, dst string) error {
	return os.Rename(src, dst)
}

// hideFile is a no-op: the default cache name already starts with a dot.
func hideFile(path string) error {
	return nil
}
