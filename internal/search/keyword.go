package search

import (
	"strings"

	"github.com/kamusis/imgsearch/internal/imageindex"
)

// KeywordSearch matches query tokens case-insensitively against the cached
// descriptions and file names. All tokens must match (AND semantics). No
// provider is called. Results keep index order.
func KeywordSearch(idx *imageindex.Index, query string, limit int) []Result {
	tokens := tokenize(query)
	if len(tokens) == 0 || idx == nil {
		return []Result{}
	}

	out := []Result{}
	for _, r := range idx.Records {
		blob := strings.ToLower(r.Path + "\n" + r.Description)
		ok := true
		for _, tok := range tokens {
			if !strings.Contains(blob, tok) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		out = append(out, Result{Path: r.Path, Description: r.Description, Score: 1, Why: "keyword"})
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func tokenize(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	parts := strings.Fields(q)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
