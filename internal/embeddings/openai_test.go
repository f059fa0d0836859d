package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kamusis/imgsearch/internal/apperr"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	prov, err := New(&Config{Model: "text-embedding-3-small", APIKey: "sk-test", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return prov
}

func TestEmbed_SingleBatchedRequest(t *testing.T) {
	var calls int
	prov := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "text-embedding-3-small" || len(req.Input) != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
		// Out of order on purpose: the provider must place vectors by index.
		_, _ = w.Write([]byte(`{"data":[
			{"index":2,"embedding":[0,0,1]},
			{"index":0,"embedding":[1,0,0]},
			{"index":1,"embedding":[0,1,0]}]}`))
	})

	vecs, err := prov.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one request, got %d", calls)
	}
	if len(vecs) != 3 || vecs[0][0] != 1 || vecs[1][1] != 1 || vecs[2][2] != 1 {
		t.Fatalf("vectors not ordered by index: %v", vecs)
	}
	if prov.ModelID() != "openai:text-embedding-3-small" {
		t.Fatalf("unexpected model id %q", prov.ModelID())
	}
}

func TestEmbed_HTTPErrorIsProviderError(t *testing.T) {
	prov := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	})

	_, err := prov.Embed(context.Background(), []string{"a"})
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusUnauthorized || pe.Op != "embed" {
		t.Fatalf("unexpected ProviderError: %+v", pe)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	prov := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	})

	_, err := prov.Embed(context.Background(), []string{"a", "b"})
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError for short response, got %v", err)
	}
}

func TestEmbed_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	prov, err := New(&Config{Model: "m", APIKey: "k", BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	_, err = prov.Embed(context.Background(), []string{"a"})
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	var ne *apperr.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError inside ProviderError, got %v", err)
	}
}

func TestEmbed_RejectsEmptyInput(t *testing.T) {
	prov := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	var pe *apperr.ProviderError
	if _, err := prov.Embed(context.Background(), nil); !errors.As(err, &pe) || pe.Op != "embed" {
		t.Fatalf("expected embed ProviderError for empty batch, got %v", err)
	}
	if _, err := prov.Embed(context.Background(), []string{"ok", "  "}); !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError for blank text, got %v", err)
	}
}

func TestNew_Validates(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := New(&Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
	if _, err := New(&Config{Model: "m"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
