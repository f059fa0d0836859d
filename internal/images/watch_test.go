package images

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_FiresOnceForImageBurst(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, nil, 150*time.Millisecond, func() { calls <- struct{}{} })
	}()
	// Give the watcher time to register.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".embeddings_cache_openai.idx"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
		t.Fatalf("non-image files must not trigger a rebuild")
	case <-time.After(400 * time.Millisecond):
	}

	for _, n := range []string{"a.jpg", "b.PNG"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected onChange after adding images")
	}
	select {
	case <-calls:
		t.Fatalf("a burst of writes should be coalesced into one call")
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}

func TestMatcher(t *testing.T) {
	dir := t.TempDir()
	m, err := Matcher(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m(filepath.Join(dir, "x.JPEG")) {
		t.Fatalf("expected match for top-level image")
	}
	if m(filepath.Join(dir, "sub", "x.jpg")) {
		t.Fatalf("default patterns are top-level only")
	}
	if m(filepath.Join(dir, "x.gif")) {
		t.Fatalf("unexpected match for gif")
	}

	deep, err := Matcher(dir, []string{"**/*.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if !deep(filepath.Join(dir, "sub", "x.jpg")) || deep(filepath.Join(dir, ".hidden", "x.jpg")) {
		t.Fatalf("recursive matcher must skip hidden directories")
	}
}
