package imageindex

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns a sha256 hash (hex) of the raw image bytes.
func ContentHash(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
