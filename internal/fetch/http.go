package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/tutorview/internal/apperr"
)

// HTTP implements Fetcher with GET requests against a static content root.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP creates a fetcher for resources under baseURL.
func NewHTTP(baseURL string, timeout time.Duration) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &HTTP{base: u, client: &http.Client{Timeout: timeout}}, nil
}

// Fetch GETs path relative to the base URL. 404 and 410 map to apperr.ErrNotFound.
func (h *HTTP) Fetch(ctx context.Context, path string) ([]byte, error) {
	ref, err := url.Parse(escapePath(normalize(path)))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse path %s: %w", path, err)
	}
	target := h.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("fetch: %s: %w", path, apperr.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch: get %s: unexpected status %d", path, resp.StatusCode)
	}

	return readLimited(resp.Body, path)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
