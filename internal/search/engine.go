package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kamusis/imgsearch/internal/imageindex"
)

var (
	// ErrInvalidTopK is returned when fewer than one result is requested.
	ErrInvalidTopK = errors.New("top-k must be at least 1")
	// ErrEmptyIndex is returned when the index has no records.
	ErrEmptyIndex = errors.New("index has no images")
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)

// QueryEmbedder embeds the search query.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Search ranks the records of idx by cosine similarity to query and returns
// the topK best. When topK exceeds the index size every record is returned.
func Search(ctx context.Context, idx *imageindex.Index, emb QueryEmbedder, query string, topK int) ([]Result, error) {
	return SearchMinScore(ctx, idx, emb, query, topK, 0)
}

// SearchMinScore is Search that also drops results scoring below minScore.
// A minScore of 0 disables the filter.
func SearchMinScore(ctx context.Context, idx *imageindex.Index, emb QueryEmbedder, query string, topK int, minScore float64) ([]Result, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	if idx.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	vecs, err := emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected one query embedding, got %d", len(vecs))
	}
	qv := imageindex.NormalizeL2(vecs[0])
	if len(qv) != idx.Manifest.Dim {
		return nil, fmt.Errorf("query embedding dim mismatch: got %d want %d", len(qv), idx.Manifest.Dim)
	}

	results := make([]Result, 0, idx.Len())
	for _, r := range idx.Records {
		score, err := imageindex.Dot(qv, r.Embedding)
		if err != nil {
			return nil, err
		}
		if minScore > 0 && score < minScore {
			continue
		}
		results = append(results, Result{
			Path:        r.Path,
			Score:       score,
			Description: r.Description,
			Why:         "semantic",
		})
	}

	SortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
