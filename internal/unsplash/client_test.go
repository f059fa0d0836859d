package unsplash

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kamusis/imgsearch/internal/apperr"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{AccessKey: "test-key", BaseURL: baseURL, Orientation: "landscape", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearchPhotos_MapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/photos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Client-ID test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		q := r.URL.Query()
		if q.Get("per_page") != "30" || q.Get("orientation") != "landscape" || q.Get("query") != "red fox" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`{"total":3,"total_pages":1,"results":[
			{"id":"a1","description":"A fox","urls":{"regular":"https://x/a1"},"user":{"name":"Ann","links":{"html":"https://u/ann"}},"links":{"download_location":"https://t/a1"}},
			{"id":"b2","description":"","alt_description":"fox in snow","urls":{"regular":"https://x/b2"}},
			{"id":"c3","urls":{"regular":"https://x/c3"}}]}`))
	}))
	defer srv.Close()

	photos, pages, err := newTestClient(t, srv.URL).SearchPhotos(context.Background(), "red fox", 50, 1)
	if err != nil {
		t.Fatalf("SearchPhotos: %v", err)
	}
	if pages != 1 || len(photos) != 3 {
		t.Fatalf("unexpected result: pages=%d photos=%d", pages, len(photos))
	}
	if photos[0].Photographer != "Ann" || photos[0].PhotographerURL != "https://u/ann" || photos[0].DownloadLocation != "https://t/a1" {
		t.Fatalf("unexpected photo %+v", photos[0])
	}
	if photos[1].Description != "fox in snow" || photos[2].Description != NoDescription {
		t.Fatalf("description fallback wrong: %q %q", photos[1].Description, photos[2].Description)
	}
}

func TestSearchPhotos_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool { var e *apperr.AuthError; return errors.As(err, &e) }},
		{http.StatusForbidden, func(err error) bool { var e *apperr.RateLimitError; return errors.As(err, &e) }},
		{http.StatusTooManyRequests, func(err error) bool { var e *apperr.RateLimitError; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool {
			var e *apperr.ProviderError
			return errors.As(err, &e) && e.StatusCode == http.StatusInternalServerError
		}},
	}
	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			_, _, err := newTestClient(t, srv.URL).SearchPhotos(context.Background(), "q", 5, 1)
			if !tc.check(err) {
				t.Fatalf("unexpected error type for %d: %T %v", tc.status, err, err)
			}
		})
	}
}

func TestSearchPhotos_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := newTestClient(t, url).SearchPhotos(context.Background(), "q", 5, 1)
	var ne *apperr.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
}

func TestSearchPhotos_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(Config{AccessKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = c.SearchPhotos(context.Background(), "q", 5, 1)
	var ne *apperr.NetworkError
	if !errors.As(err, &ne) || !ne.Timeout {
		t.Fatalf("expected timeout NetworkError, got %T %v", err, err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{AccessKey: "  "})
	var ce *apperr.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"mountain lake":    "mountain_lake",
		"Café  au Lait!":   "cafe_au_lait",
		"  --  ":           "query",
		"Tokyo 2024/night": "tokyo_2024_night",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeID(t *testing.T) {
	if got := safeID("ab-C_9"); got != "ab-C_9" {
		t.Fatalf("unexpected %q", got)
	}
	if got := safeID("../../etc"); got != "etc" {
		t.Fatalf("path characters must be replaced, got %q", got)
	}
	if got := safeID("/"); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
