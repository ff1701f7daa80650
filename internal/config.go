package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tutorview/internal/catalog"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/search"
	"github.com/starford/tutorview/internal/viewer"
)

// Content source kinds.
const (
	SourceKindFS   = "fs"
	SourceKindHTTP = "http"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Source  SourceConfig      `yaml:"source"`
	Catalog catalog.Manifest  `yaml:"catalog"`
	Render  RenderConfig      `yaml:"render"`
	Search  SearchConfig      `yaml:"search"`
	Cache   CacheConfig       `yaml:"cache"`
	Viewer  ViewerConfig      `yaml:"viewer"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Catalog,
		validation.Field(&c.Catalog.Strategy, validation.In(catalog.StrategyManifest, catalog.StrategyProbe)),
		validation.Field(&c.Catalog.Concurrency, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.Watch.Enabled && c.Source.Kind != SourceKindFS {
		return fmt.Errorf("watch: only supported for source kind %q", SourceKindFS)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig says where the Markdown tree lives: a local directory or a
// remote static root.
type SourceConfig struct {
	Kind    string        `yaml:"kind"`
	Root    string        `yaml:"root"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.Kind == "" {
		c.Kind = SourceKindFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(SourceKindFS, SourceKindHTTP)),
		validation.Field(&c.Root, validation.When(c.Kind == SourceKindFS, validation.Required)),
		validation.Field(&c.BaseURL, validation.When(c.Kind == SourceKindHTTP, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// RenderConfig tunes Markdown rendering.
type RenderConfig struct {
	DiagramLanguages []string `yaml:"diagram_languages"`
	HighlightStyle   string   `yaml:"highlight_style"`
}

// Options converts to renderer options.
func (c RenderConfig) Options() markdown.Options {
	return markdown.Options{DiagramLanguages: c.DiagramLanguages, HighlightStyle: c.HighlightStyle}
}

// SearchConfig tunes full-text search.
type SearchConfig struct {
	ContextChars         int `yaml:"context_chars"`
	MaxMatchesPerChapter int `yaml:"max_matches_per_chapter"`
	Concurrency          int `yaml:"concurrency"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ContextChars, validation.Min(0)),
		validation.Field(&c.MaxMatchesPerChapter, validation.Min(0)),
		validation.Field(&c.Concurrency, validation.Min(0)),
	)
}

// Options converts to engine options.
func (c SearchConfig) Options() search.Options {
	return search.Options{
		ContextChars:         c.ContextChars,
		MaxMatchesPerChapter: c.MaxMatchesPerChapter,
		Concurrency:          c.Concurrency,
	}
}

// CacheConfig controls the SQLite fetch cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// ViewerConfig controls browser sessions.
type ViewerConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// WatchConfig toggles the content watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Kind:    SourceKindFS,
			Root:    ".",
			Timeout: 10 * time.Second,
		},
		Catalog: catalog.DefaultManifest(),
		Render: RenderConfig{
			DiagramLanguages: []string{"mermaid"},
			HighlightStyle:   "github",
		},
		Search: SearchConfig{
			ContextChars: 50,
			Concurrency:  8,
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    "./tutorview-cache.db",
			TTL:     5 * time.Minute,
		},
		Viewer: ViewerConfig{
			SessionTTL: viewer.DefaultSessionTTL,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}
