package imageindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileMagic opens every cache file.
const fileMagic = "IMGIDX1\n"

// fileHeader is the JSON block that follows the magic and its length prefix.
type fileHeader struct {
	FormatVersion int      `json:"format_version"`
	CreatedAt     string   `json:"created_at"`
	ModelID       string   `json:"model_id"`
	Dim           int      `json:"dim"`
	Paths         []string `json:"paths"`
	Descriptions  []string `json:"descriptions"`
	// Hashes holds per-record content hashes, in path order, when the index
	// was built incrementally.
	Hashes []string `json:"hashes,omitempty"`
}

// Write stores idx at path as a single file.
//
// Layout: magic, uint32 LE header length, JSON header, then
// len(paths)*dim float32 LE values. The file is written to a temp sibling and
// renamed into place so readers never see a partial file.
func Write(path string, idx *Index) error {
	if idx == nil || len(idx.Records) == 0 {
		return fmt.Errorf("no records to write")
	}
	dim := idx.Manifest.Dim
	if dim <= 0 {
		return fmt.Errorf("invalid dim: %d", dim)
	}
	if len(idx.Paths) != len(idx.Records) {
		return fmt.Errorf("path count mismatch: %d paths for %d records", len(idx.Paths), len(idx.Records))
	}

	h := fileHeader{
		FormatVersion: FormatVersion,
		CreatedAt:     idx.Manifest.CreatedAt,
		ModelID:       idx.Manifest.ModelID,
		Dim:           dim,
		Paths:         idx.Paths,
		Descriptions:  make([]string, len(idx.Records)),
	}
	if h.CreatedAt == "" {
		h.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if idx.hashed() {
		h.Hashes = make([]string, len(idx.Records))
		for i, r := range idx.Records {
			h.Hashes[i] = r.ContentHash
		}
	}
	vectors := make([]float32, 0, len(idx.Records)*dim)
	for i, r := range idx.Records {
		if len(r.Embedding) != dim {
			return fmt.Errorf("record %d has dim %d, want %d", i, len(r.Embedding), dim)
		}
		h.Descriptions[i] = r.Description
		vectors = append(vectors, r.Embedding...)
	}

	hb, err := json.Marshal(h)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if _, err := bw.WriteString(fileMagic); err != nil {
		return fail(err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(hb))); err != nil {
		return fail(err)
	}
	if _, err := bw.Write(hb); err != nil {
		return fail(err)
	}
	if err := binary.Write(bw, binary.LittleEndian, vectors); err != nil {
		return fail(fmt.Errorf("cannot write vectors: %w", err))
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := replaceFile(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot move cache file into place: %w", err)
	}
	return nil
}
