package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tutorview/internal"
	"github.com/starford/tutorview/internal/search"
	pkgconfig "github.com/starford/tutorview/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	// The flag wins over the file.
	if root := cmd.String("root"); root != "" {
		cfg.Source.Kind = internal.SourceKindFS
		cfg.Source.Root = root
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func printCatalog(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closeFn, err := internal.Service(internal.WithConfig(cfg), quietLogger())
	if err != nil {
		return err
	}
	defer closeFn()

	cat, err := svc.Catalog(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(cat.Groups())
	}
	for _, g := range cat.Groups() {
		fmt.Printf("%s (%s)\n", g.Name, g.Dir)
		for _, ch := range g.Chapters {
			fmt.Printf("  %-20s %-30s %s\n", ch.ID, ch.Title, ch.Path)
		}
	}
	return nil
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search: query is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closeFn, err := internal.Service(internal.WithConfig(cfg), quietLogger())
	if err != nil {
		return err
	}
	defer closeFn()

	results, err := svc.Search(ctx, query)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(results)
	}
	if len(results) == 0 {
		fmt.Printf("No results found for %q\n", query)
		return nil
	}
	fmt.Printf("Found %d matches in %d chapters\n", search.Count(results), len(results))
	for _, r := range results {
		fmt.Printf("\n%s  [%s]\n", r.Chapter.Title, r.Chapter.ID)
		for _, m := range r.Matches {
			end := m.MatchStart + m.MatchLength
			line := m.Context[:m.MatchStart] + "[" + m.Context[m.MatchStart:end] + "]" + m.Context[end:]
			fmt.Printf("  %s\n", strings.ReplaceAll(line, "\n", " "))
		}
	}
	return nil
}

func renderChapter(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return errors.New("render: chapter id or path is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, closeFn, err := internal.Service(internal.WithConfig(cfg), quietLogger())
	if err != nil {
		return err
	}
	defer closeFn()

	detail, err := svc.ReadChapter(ctx, ref)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(detail)
	}
	fmt.Println(detail.HTML)
	return nil
}

func quietLogger() internal.Option {
	return internal.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"}
}

func main() {
	cmd := &cli.Command{
		Name:    "tutorview",
		Usage:   "Browse, render and search a tree of Markdown tutorials",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Local content root (overrides source.root)",
				Sources: cli.EnvVars("TUTORVIEW_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web viewer",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the chapters as MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "catalog",
				Usage:  "Discover and print the tutorial groups and chapters",
				Flags:  []cli.Flag{jsonFlag()},
				Action: printCatalog,
			},
			{
				Name:      "search",
				Usage:     "Search every chapter for a phrase",
				ArgsUsage: "<query>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    runSearch,
			},
			{
				Name:      "render",
				Usage:     "Render one chapter to HTML",
				ArgsUsage: "<id|path>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    renderChapter,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
