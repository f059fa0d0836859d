package imageindex

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// acquireWriteLock takes the lock file that guards writes to cachePath.
func acquireWriteLock(cachePath string, timeout time.Duration) (func(), error) {
	lockPath := cachePath + ".lock"
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire cache lock: %w", err)
		}
		if locked {
			_ = hideFile(lockPath)
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("another process is writing the cache (lock: %s)", lockPath)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
