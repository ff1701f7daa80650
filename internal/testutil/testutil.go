// Package testutil provides shared test helpers: an in-memory fake fetcher
// and temporary content trees.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/fetch"
)

// FakeFetcher serves resources from a map and records every call.
type FakeFetcher struct {
	mu    sync.Mutex
	files map[string]string
	fails map[string]error
	gates map[string]chan struct{}
	calls []string
}

var _ fetch.Fetcher = (*FakeFetcher)(nil)

// NewFakeFetcher returns a fetcher serving files (path -> content).
func NewFakeFetcher(files map[string]string) *FakeFetcher {
	cp := make(map[string]string, len(files))
	for k, v := range files {
		cp[k] = v
	}
	return &FakeFetcher{
		files: cp,
		fails: make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

// Fetch implements fetch.Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	gate := f.gates[path]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fails[path]; ok {
		return nil, err
	}
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", path, apperr.ErrNotFound)
	}
	return []byte(content), nil
}

// Set adds or replaces a resource.
func (f *FakeFetcher) Set(path, content string) {
	f.mu.Lock()
	f.files[path] = content
	f.mu.Unlock()
}

// Fail makes every fetch of path return err.
func (f *FakeFetcher) Fail(path string, err error) {
	f.mu.Lock()
	f.fails[path] = err
	f.mu.Unlock()
}

// Hold blocks fetches of path until the returned release func is called.
func (f *FakeFetcher) Hold(path string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[path] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, path)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns every requested path in call order.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns the number of fetches made.
func (f *FakeFetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Reset clears the recorded calls.
func (f *FakeFetcher) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// QuietLogger discards everything below error level.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ContentTree writes files (slash paths relative to a temp root) and returns
// the root with an FS fetcher over it.
func ContentTree(t *testing.T, files map[string]string) (string, *fetch.FS) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	f, err := fetch.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, f
}
