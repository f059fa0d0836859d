//go:build windows

package imageindex

import (
	"os"

	"golang.org/x/sys/windows"
)

// replaceFile renames src over dst and marks dst hidden.
//
// Windows refuses to overwrite a hidden file in some configurations, so the
// attribute is cleared first and restored after the rename.
func replaceFile(src, dst string) error {
	p, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}
	if attrs, err := windows.GetFileAttributes(p); err == nil && attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0 {
		_ = windows.SetFileAttributes(p, attrs&^windows.FILE_ATTRIBUTE_HIDDEN)
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	return hideFile(dst)
}

// hideFile sets FILE_ATTRIBUTE_HIDDEN on path.
func hideFile(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(p, attrs|windows.FILE_ATTRIBUTE_HIDDEN)
}
