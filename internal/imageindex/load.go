package imageindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// maxHeaderLen bounds the JSON header so a damaged length prefix cannot
// trigger a huge allocation.
const maxHeaderLen = 256 << 20

// Load reads the cache file at path.
//
// A missing or unreadable file yields the underlying os error. A file that
// exists but does not parse yields a *CacheCorruptError.
func Load(path string) (*Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read cache file %s: %w", path, err)
	}
	idx, err := decode(b)
	if err != nil {
		return nil, &CacheCorruptError{Path: path, Err: err}
	}
	return idx, nil
}

func decode(b []byte) (*Index, error) {
	if len(b) < len(fileMagic)+4 || string(b[:len(fileMagic)]) != fileMagic {
		return nil, errors.New("missing file magic")
	}
	b = b[len(fileMagic):]
	hlen := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	if hlen == 0 || hlen > maxHeaderLen || int(hlen) > len(b) {
		return nil, fmt.Errorf("invalid header length %d", hlen)
	}

	var h fileHeader
	if err := json.Unmarshal(b[:hlen], &h); err != nil {
		return nil, fmt.Errorf("invalid header JSON: %w", err)
	}
	b = b[hlen:]

	if h.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", h.FormatVersion)
	}
	if h.Dim <= 0 {
		return nil, fmt.Errorf("invalid dim in header: %d", h.Dim)
	}
	if len(h.Paths) == 0 {
		return nil, errors.New("header lists no paths")
	}
	if len(h.Descriptions) != len(h.Paths) {
		return nil, fmt.Errorf("header has %d descriptions for %d paths", len(h.Descriptions), len(h.Paths))
	}
	if len(h.Hashes) != 0 && len(h.Hashes) != len(h.Paths) {
		return nil, fmt.Errorf("header has %d hashes for %d paths", len(h.Hashes), len(h.Paths))
	}
	expected := len(h.Paths) * h.Dim * 4
	if len(b) != expected {
		return nil, fmt.Errorf("vector block size mismatch: got %d want %d (paths=%d dim=%d)", len(b), expected, len(h.Paths), h.Dim)
	}

	vectors := make([]float32, len(h.Paths)*h.Dim)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, vectors); err != nil {
		return nil, fmt.Errorf("cannot decode vectors: %w", err)
	}

	idx := &Index{
		Manifest: Manifest{
			FormatVersion: h.FormatVersion,
			CreatedAt:     h.CreatedAt,
			ModelID:       h.ModelID,
			Dim:           h.Dim,
		},
		Paths:   h.Paths,
		Records: make([]Record, len(h.Paths)),
	}
	for i := range h.Paths {
		idx.Records[i] = Record{
			Path:        h.Paths[i],
			Description: h.Descriptions[i],
			Embedding:   vectors[i*h.Dim : (i+1)*h.Dim : (i+1)*h.Dim],
		}
		if len(h.Hashes) != 0 {
			idx.Records[i].ContentHash = h.Hashes[i]
		}
	}
	return idx, nil
}
