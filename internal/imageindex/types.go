package imageindex

// FormatVersion is the current cache file layout version.
const FormatVersion = 1

// Manifest describes a cached index and how to interpret its vectors.
type Manifest struct {
	FormatVersion int    `json:"format_version"`
	CreatedAt     string `json:"created_at"`
	ModelID       string `json:"model_id"`
	Dim           int    `json:"dim"`
}

// Record is one indexed image.
type Record struct {
	Path        string
	Description string
	// Embedding has unit L2 norm.
	Embedding []float32
	// ContentHash is the sha256 of the image bytes the record was built
	// from. Only set by incremental builds.
	ContentHash string
}

// Index is a loaded or freshly built image index. Paths is the exact ordered
// list the index was built from; Records follow the same order.
type Index struct {
	Manifest Manifest
	Paths    []string
	Records  []Record
}

// Len returns the number of records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Records)
}

// Matches reports whether idx was built from exactly paths, in order.
func (idx *Index) Matches(paths []string) bool {
	if idx == nil || len(idx.Paths) != len(paths) {
		return false
	}
	for i := range paths {
		if idx.Paths[i] != paths[i] {
			return false
		}
	}
	return true
}

// hashed reports whether every record carries a content hash.
func (idx *Index) hashed() bool {
	for _, r := range idx.Records {
		if r.ContentHash == "" {
			return false
		}
	}
	return true
}
