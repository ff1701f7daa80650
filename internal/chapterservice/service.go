// Package chapterservice is the stateless read-side facade over discovery,
// fetching, rendering and search, shared by the CLI, the MCP server and the
// catalog endpoint.
package chapterservice

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/checksum"
	"github.com/starford/tutorview/internal/fetch"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/models"
	"github.com/starford/tutorview/internal/search"
)

// ChapterDetail is the full representation of a chapter.
type ChapterDetail struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	Group    string `json:"group,omitempty"`
	Content  string `json:"content"`
	HTML     string `json:"html"`
	Checksum string `json:"checksum"`
	Diagrams bool   `json:"diagrams"`
}

type discoverer interface {
	Discover(ctx context.Context) (*models.Catalog, error)
}

type searcher interface {
	Search(ctx context.Context, cat *models.Catalog, query string) ([]search.Result, bool, error)
}

// Service coordinates discovery, fetching, rendering and search.
type Service struct {
	discoverer discoverer
	fetcher    fetch.Fetcher
	renderer   *markdown.Renderer
	searcher   searcher
}

// NewService creates a chapter service.
func NewService(d discoverer, f fetch.Fetcher, r *markdown.Renderer, s searcher) *Service {
	return &Service{discoverer: d, fetcher: f, renderer: r, searcher: s}
}

// Catalog runs a fresh discovery.
func (s *Service) Catalog(ctx context.Context) (*models.Catalog, error) {
	cat, err := s.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// ReadChapter loads a chapter by catalog id or by resource path. A path
// outside the catalog is still served, without id or group.
func (s *Service) ReadChapter(ctx context.Context, idOrPath string) (*ChapterDetail, error) {
	ref := strings.TrimSpace(idOrPath)
	if ref == "" {
		return nil, fmt.Errorf("chapterservice: empty reference: %w", apperr.ErrUnknownChapter)
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	detail := &ChapterDetail{}
	if ch, group, ok := cat.ByID(ref); ok {
		detail.ID, detail.Title, detail.Path, detail.Group = ch.ID, ch.Title, ch.Path, group
	} else if strings.HasSuffix(strings.ToLower(ref), ".md") {
		p := strings.TrimPrefix(path.Clean("/"+ref), "/")
		detail.Path = p
		if ch, group, ok := cat.ByPath(p); ok {
			detail.ID, detail.Title, detail.Group = ch.ID, ch.Title, group
		}
	} else {
		return nil, fmt.Errorf("chapterservice: %q: %w", ref, apperr.ErrUnknownChapter)
	}

	data, err := s.fetcher.Fetch(ctx, detail.Path)
	if err != nil {
		return nil, fmt.Errorf("chapterservice: read %s: %w", detail.Path, err)
	}
	page := s.renderer.RenderChapter(data, detail.Path)
	detail.Content = string(data)
	detail.HTML = page.HTML
	detail.Diagrams = page.Diagrams
	detail.Checksum = checksum.Sum(data)
	if detail.Title == "" {
		detail.Title = page.Title
	}
	return detail, nil
}

// Search discovers the catalog and searches every chapter. Blank queries
// return no results without fetching anything.
func (s *Service) Search(ctx context.Context, query string) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	results, _, err := s.searcher.Search(ctx, cat, query)
	if err != nil {
		return nil, fmt.Errorf("chapterservice: search: %w", err)
	}
	return results, nil
}
