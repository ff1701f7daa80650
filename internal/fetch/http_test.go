package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/tutorview/internal/apperr"
)

func TestHTTPFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/docs/output/groupA/index.md":
			_, _ = w.Write([]byte("# Overview"))
		case "/docs/output/groupA/02_my file_.md":
			_, _ = w.Write([]byte("spaced"))
		case "/docs/broken.md":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.URL+"/docs", 2*time.Second)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	ctx := context.Background()

	got, err := h.Fetch(ctx, "output/groupA/index.md")
	if err != nil || string(got) != "# Overview" {
		t.Fatalf("Fetch = %q, %v", got, err)
	}

	got, err = h.Fetch(ctx, "/output/groupA/02_my file_.md")
	if err != nil || string(got) != "spaced" {
		t.Errorf("Fetch(escaped) = %q, %v", got, err)
	}

	if _, err := h.Fetch(ctx, "output/groupB/index.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}

	_, err = h.Fetch(ctx, "broken.md")
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("500: err = %v, want non-NotFound error", err)
	}
}

func TestNewHTTP_RejectsScheme(t *testing.T) {
	if _, err := NewHTTP("ftp://example.com", time.Second); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestHTTPFetch_OversizedIsAnError(t *testing.T) {
	withResourceLimit(t, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("too long"))
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if _, err := h.Fetch(context.Background(), "a.md"); !errors.Is(err, apperr.ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}
