package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/tutorview/internal/cache"
	"github.com/starford/tutorview/internal/catalog"
	"github.com/starford/tutorview/internal/chapterservice"
	"github.com/starford/tutorview/internal/fetch"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/search"
	"github.com/starford/tutorview/internal/viewer"
)

// components are the long-lived collaborators built from a Config.
type components struct {
	cfg    *Config
	logger *slog.Logger

	source     fetch.Fetcher
	fs         *fetch.FS // nil unless the source is a local directory
	cacheDB    *cache.DB // nil unless the cache is enabled
	fetcher    fetch.Fetcher
	discoverer *catalog.Discoverer
	renderer   *markdown.Renderer
	engine     *search.Engine
	service    *chapterservice.Service
}

func (a *application) build() (*components, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	c := &components{cfg: cfg, logger: logger}

	switch cfg.Source.Kind {
	case SourceKindHTTP:
		h, err := fetch.NewHTTP(cfg.Source.BaseURL, cfg.Source.Timeout)
		if err != nil {
			return nil, fmt.Errorf("init source: %w", err)
		}
		c.source = h
	default:
		fs, err := fetch.NewFS(cfg.Source.Root)
		if err != nil {
			return nil, fmt.Errorf("init source: %w", err)
		}
		c.fs = fs
		c.source = fs
	}

	c.fetcher = c.source
	if cfg.Cache.Enabled {
		db, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		c.cacheDB = db
		c.fetcher = cache.NewFetcher(c.source, db, cfg.Cache.TTL, logger)
	}

	c.discoverer = catalog.NewDiscoverer(c.fetcher, cfg.Catalog, logger)
	if len(cfg.Catalog.Groups) == 0 {
		if c.fs != nil {
			c.discoverer.WithScan(os.DirFS(c.fs.Root()))
			logger.Info("No catalog groups configured, scanning content dir",
				slog.String("content_dir", cfg.Catalog.ContentDir))
		} else {
			logger.Warn("No catalog groups configured; an http source cannot be scanned, nothing will be discovered")
		}
	}
	c.renderer = markdown.NewRenderer(cfg.Render.Options(), logger)
	c.engine = search.NewEngine(c.fetcher, cfg.Search.Options(), logger)
	c.service = chapterservice.NewService(c.discoverer, c.fetcher, c.renderer, c.engine)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_kind", cfg.Source.Kind),
		slog.String("source", sourceLabel(cfg)),
		slog.String("strategy", cfg.Catalog.Strategy),
		slog.Bool("cache", cfg.Cache.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))
	return c, nil
}

func (c *components) viewerDeps() viewer.Deps {
	return viewer.Deps{
		Discoverer: c.discoverer,
		Fetcher:    c.fetcher,
		Renderer:   c.renderer,
		Searcher:   c.engine,
		Logger:     c.logger,
	}
}

// invalidator returns the cache as a watcher target, or nil when the cache is off.
func (c *components) invalidator() cache.Invalidator {
	if c.cacheDB == nil {
		return nil
	}
	return c.cacheDB
}

func (c *components) close() {
	if c.cacheDB != nil {
		if err := c.cacheDB.Close(); err != nil {
			c.logger.Warn("cache close failed", slog.String("error", err.Error()))
		}
	}
}

func sourceLabel(cfg *Config) string {
	if cfg.Source.Kind == SourceKindHTTP {
		return cfg.Source.BaseURL
	}
	return cfg.Source.Root
}

// Service builds the stateless chapter service for one-shot commands. The
// returned func releases the cache.
func Service(opts ...Option) (*chapterservice.Service, func(), error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	c, err := app.build()
	if err != nil {
		return nil, nil, err
	}
	return c.service, c.close, nil
}
