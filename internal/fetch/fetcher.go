// Package fetch retrieves Markdown resources from the tutorial content root.
package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/starford/tutorview/internal/apperr"
)

// maxResourceSize bounds a single fetched resource.
var maxResourceSize int64 = 10 << 20

// Fetcher retrieves the raw bytes of a resource path relative to the content
// root. A missing resource yields an error wrapping apperr.ErrNotFound.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context, path string) ([]byte, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// normalize converts a resource path to forward slashes without a leading slash.
func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimLeft(p, "/")
}

// readLimited reads r in full, failing with apperr.ErrTooLarge instead of
// truncating when it holds more than maxResourceSize bytes.
func readLimited(r io.Reader, path string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", path, err)
	}
	if int64(len(data)) > maxResourceSize {
		return nil, fmt.Errorf("fetch: %s exceeds %d bytes: %w", path, maxResourceSize, apperr.ErrTooLarge)
	}
	return data, nil
}
