package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tutorview/internal/fetch"
	"github.com/starford/tutorview/internal/models"
)

// Options tunes the search engine.
type Options struct {
	ContextChars         int // runes of context on each side of a match
	MaxMatchesPerChapter int // 0 means unlimited
	Concurrency          int // parallel chapter fetches
}

// DefaultOptions returns 50 runes of context, no match limit and 8 fetches in flight.
func DefaultOptions() Options {
	return Options{ContextChars: 50, Concurrency: 8}
}

// Result groups the matches found in one chapter.
type Result struct {
	Chapter models.ChapterDescriptor `json:"chapter"`
	Matches []Match                  `json:"matches"`
}

// Engine searches every chapter of a catalog. It is stateless and safe for
// concurrent use.
type Engine struct {
	fetcher fetch.Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewEngine creates an Engine. Non-positive concurrency falls back to the default.
func NewEngine(f fetch.Fetcher, opts Options, logger *slog.Logger) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if opts.ContextChars < 0 {
		opts.ContextChars = 0
	}
	return &Engine{fetcher: f, opts: opts, logger: logger}
}

// Search fetches every chapter and scans it for query. The boolean is false
// when the query is blank, in which case nothing is fetched. Chapters that
// fail to load are left out. Results follow catalog order and chapters
// without matches are omitted.
func (e *Engine) Search(ctx context.Context, cat *models.Catalog, query string) ([]Result, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false, nil
	}

	chapters := cat.Chapters()
	slots := make([][]Match, len(chapters))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, ch := range chapters {
		g.Go(func() error {
			body, err := e.fetcher.Fetch(gCtx, ch.Path)
			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Warn("search: chapter skipped",
					slog.String("path", ch.Path), slog.String("error", err.Error()))
				return nil
			}
			slots[i] = FindMatches(string(body), query, e.opts.ContextChars, e.opts.MaxMatchesPerChapter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, true, err
	}

	results := make([]Result, 0)
	total := 0
	for i, matches := range slots {
		if len(matches) == 0 {
			continue
		}
		total += len(matches)
		results = append(results, Result{Chapter: chapters[i], Matches: matches})
	}
	e.logger.Debug("search: done",
		slog.String("query", query),
		slog.Int("chapters", len(results)),
		slog.Int("matches", total))
	return results, true, nil
}

// Count returns the total number of matches across results.
func Count(results []Result) int {
	n := 0
	for _, r := range results {
		n += len(r.Matches)
	}
	return n
}
