package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/fetch"
)

// Fetcher is a fetch.Fetcher that answers from the cache while entries are
// younger than ttl. Confirmed misses are cached too, since discovery probes
// many paths that do not exist. Transient errors are never cached.
type Fetcher struct {
	next   fetch.Fetcher
	db     *DB
	ttl    time.Duration
	logger *slog.Logger
}

var _ fetch.Fetcher = (*Fetcher)(nil)

// NewFetcher wraps next with the cache in db.
func NewFetcher(next fetch.Fetcher, db *DB, ttl time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{next: next, db: db, ttl: ttl, logger: logger}
}

// Fetch implements fetch.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	e, ok, err := f.db.Lookup(path, time.Now().Add(-f.ttl))
	if err != nil {
		f.logger.Warn("cache: lookup failed", slog.String("path", path), slog.String("error", err.Error()))
	} else if ok {
		if e.Missing {
			return nil, fmt.Errorf("cache: %s: %w", path, apperr.ErrNotFound)
		}
		return e.Body, nil
	}

	data, err := f.next.Fetch(ctx, path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if putErr := f.db.PutMiss(path); putErr != nil {
			f.logger.Warn("cache: store miss failed", slog.String("path", path), slog.String("error", putErr.Error()))
		}
		return nil, err
	case err != nil:
		return nil, err
	}
	if putErr := f.db.Put(path, data); putErr != nil {
		f.logger.Warn("cache: store failed", slog.String("path", path), slog.String("error", putErr.Error()))
	}
	return data, nil
}

// Janitor purges expired entries every interval until ctx is cancelled.
func Janitor(ctx context.Context, db *DB, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.Purge(time.Now().Add(-ttl))
			if err != nil {
				logger.Warn("cache: purge failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("cache: purged", slog.Int64("entries", n))
		}
	}
}
