package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/tutorview/internal/apperr"
)

// FS implements Fetcher backed by the local file system.
type FS struct {
	root string // absolute path to the content root
}

// NewFS creates a new FS fetcher rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fetch: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fetch: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fetch: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute content root.
func (f *FS) Root() string {
	return f.root
}

// Rel converts an absolute file name under the root to a resource path.
func (f *FS) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// safePath resolves a relative path against the content root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("fetch: empty path")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("fetch: absolute paths not allowed: %s", rel)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("fetch: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("fetch: path escapes content root: %s", rel)
	}
	return abs, nil
}

// Fetch returns the raw bytes of a file under the root.
func (f *FS) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fetch: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch: open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("fetch: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("fetch: %s is a directory: %w", path, apperr.ErrNotFound)
	}
	return readLimited(file, path)
}
