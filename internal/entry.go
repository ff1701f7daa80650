// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tutorview/internal/api"
	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/cache"
	"github.com/starford/tutorview/internal/mcpserver"
	"github.com/starford/tutorview/internal/sse"
	"github.com/starford/tutorview/internal/viewer"
	"github.com/starford/tutorview/internal/web"
)

// Run starts the HTTP viewer with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	c, err := app.build()
	if err != nil {
		return err
	}
	defer c.close()

	cfg := c.cfg
	logger := c.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	reg := viewer.NewRegistry(c.viewerDeps(), cfg.Viewer.SessionTTL)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(c, reg, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Content watcher: invalidates the cache and tells open pages to reload.
	if cfg.Watch.Enabled && c.fs != nil {
		g.Go(func() error {
			err := cache.Watch(gCtx, c.fs.Root(), c.invalidator(), logger, broker.PublishChange)
			if err != nil {
				logger.Warn("content watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if c.cacheDB != nil {
		g.Go(func() error {
			cache.Janitor(gCtx, c.cacheDB, cfg.Cache.TTL, logger)
			return nil
		})
	}

	g.Go(func() error {
		return reg.Janitor(gCtx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server is asked to stop so the
// watcher and janitors exit too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		// stdout carries the protocol; keep logs off it.
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	c, err := app.build()
	if err != nil {
		return err
	}
	defer c.close()

	version := app.version
	if version == "" {
		version = "dev"
	}
	return mcpserver.New(c.service, version).ServeStdio()
}

func newRouter(c *components, reg *viewer.Registry, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		if _, err := c.service.Catalog(ctx); err != nil {
			if !errors.Is(err, apperr.ErrNoTutorials) {
				c.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			}
			writeStatus(w, http.StatusServiceUnavailable, "no tutorials")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", api.NewRouter(reg, c.service, broker))

	var css bytes.Buffer
	if err := c.renderer.WriteHighlightCSS(&css); err != nil {
		c.logger.Warn("highlight stylesheet unavailable", slog.String("error", err.Error()))
	}
	r.Get("/assets/highlight.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		_, _ = w.Write(css.Bytes())
	})
	r.Handle("/assets/*", web.AssetHandler("/assets/"))
	r.Handle("/", web.IndexHandler())

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
