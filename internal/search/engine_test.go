package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kamusis/imgsearch/internal/apperr"
	"github.com/kamusis/imgsearch/internal/imageindex"
)

type fixedEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func makeIndex(vecs ...[]float32) *imageindex.Index {
	idx := &imageindex.Index{Manifest: imageindex.Manifest{Dim: len(vecs[0])}}
	for i, v := range imageindex.NormalizeRows(vecs) {
		p := string(rune('a'+i)) + ".jpg"
		idx.Paths = append(idx.Paths, p)
		idx.Records = append(idx.Records, imageindex.Record{Path: p, Description: "image " + p, Embedding: v})
	}
	return idx
}

func TestSearch_RanksByCosine(t *testing.T) {
	idx := makeIndex([]float32{1, 0}, []float32{0, 1}, []float32{0.7, 0.7})
	emb := &fixedEmbedder{vec: []float32{1, 0}}

	res, err := Search(context.Background(), idx, emb, "red", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].Path != "a.jpg" || math.Abs(res[0].Score-1) > 1e-6 {
		t.Fatalf("unexpected first result %+v", res[0])
	}
	if res[1].Path != "c.jpg" || math.Abs(res[1].Score-math.Sqrt2/2) > 1e-6 {
		t.Fatalf("unexpected second result %+v", res[1])
	}
	if res[0].Description != "image a.jpg" {
		t.Fatalf("description not carried: %+v", res[0])
	}
	if emb.calls != 1 {
		t.Fatalf("expected one embed call, got %d", emb.calls)
	}
}

func TestSearch_TopKLargerThanIndex(t *testing.T) {
	idx := makeIndex([]float32{1, 0}, []float32{0, 1}, []float32{0.7, 0.7})
	res, err := Search(context.Background(), idx, &fixedEmbedder{vec: []float32{0, 1}}, "q", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Fatalf("expected all 3 records, got %d", len(res))
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Fatalf("results not descending: %+v", res)
		}
	}
}

func TestSearch_TiesKeepIndexOrder(t *testing.T) {
	idx := makeIndex([]float32{0, 1}, []float32{1, 0}, []float32{1, 0}, []float32{1, 0})
	res, err := Search(context.Background(), idx, &fixedEmbedder{vec: []float32{1, 0}}, "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b.jpg", "c.jpg", "d.jpg"}
	for i, w := range want {
		if res[i].Path != w {
			t.Fatalf("tie order broken: got %v", res)
		}
	}
}

func TestSearchMinScore_Filters(t *testing.T) {
	idx := makeIndex([]float32{1, 0}, []float32{0, 1}, []float32{0.7, 0.7})
	res, err := SearchMinScore(context.Background(), idx, &fixedEmbedder{vec: []float32{1, 0}}, "q", 5, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Path != "a.jpg" {
		t.Fatalf("expected only a.jpg above 0.8, got %+v", res)
	}
}

func TestSearch_Errors(t *testing.T) {
	idx := makeIndex([]float32{1, 0})
	emb := &fixedEmbedder{vec: []float32{1, 0}}
	ctx := context.Background()

	if _, err := Search(ctx, idx, emb, "q", 0); !errors.Is(err, ErrInvalidTopK) {
		t.Fatalf("expected ErrInvalidTopK, got %v", err)
	}
	if _, err := Search(ctx, &imageindex.Index{}, emb, "q", 1); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
	if _, err := Search(ctx, idx, emb, "   ", 1); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if emb.calls != 0 {
		t.Fatalf("validation failures must not call the embedder")
	}

	perr := &apperr.ProviderError{Service: "openai", Op: "embed", StatusCode: 500}
	_, err := Search(ctx, idx, &fixedEmbedder{err: perr}, "q", 1)
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}

	if _, err := Search(ctx, idx, &fixedEmbedder{vec: []float32{1, 0, 0}}, "q", 1); err == nil {
		t.Fatalf("expected dim mismatch error")
	}
}
