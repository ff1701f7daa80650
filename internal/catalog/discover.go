package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/fetch"
	"github.com/starford/tutorview/internal/models"
)

// Discoverer builds a Catalog by probing the content root for the groups and
// chapters named in a Manifest. A failed probe means "does not exist": it is
// logged at debug level and skipped, never surfaced.
type Discoverer struct {
	fetcher  fetch.Fetcher
	manifest Manifest
	logger   *slog.Logger
	scan     fs.FS
}

// NewDiscoverer creates a Discoverer. Zero-valued manifest fields fall back
// to DefaultManifest.
func NewDiscoverer(f fetch.Fetcher, m Manifest, logger *slog.Logger) *Discoverer {
	def := DefaultManifest()
	if m.IndexFile == "" {
		m.IndexFile = def.IndexFile
	}
	if m.OverviewTitle == "" {
		m.OverviewTitle = def.OverviewTitle
	}
	if m.Strategy == "" {
		m.Strategy = def.Strategy
	}
	if m.Concurrency <= 0 {
		m.Concurrency = def.Concurrency
	}
	if m.Probe.MaxChapters <= 0 {
		m.Probe.MaxChapters = def.Probe.MaxChapters
	}
	if len(m.Probe.Patterns) == 0 {
		m.Probe.Patterns = def.Probe.Patterns
	}
	return &Discoverer{fetcher: f, manifest: m, logger: logger}
}

// WithScan makes a manifest without groups fall back to the directories
// found under the content dir of fsys, rescanned on every Discover.
func (d *Discoverer) WithScan(fsys fs.FS) *Discoverer {
	d.scan = fsys
	return d
}

// candidate is a chapter admitted by a successful probe.
type candidate struct {
	number   int
	numbered bool
	desc     models.ChapterDescriptor
}

// Discover probes every candidate group in manifest order. It returns
// apperr.ErrNoTutorials when no group index could be fetched.
func (d *Discoverer) Discover(ctx context.Context) (*models.Catalog, error) {
	specs, err := d.uniqueGroups()
	if err != nil {
		return nil, err
	}
	slots := make([]*models.ChapterGroup, len(specs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.manifest.Concurrency)
	for i, spec := range specs {
		g.Go(func() error {
			group, err := d.discoverGroup(gCtx, spec)
			if err != nil {
				return err
			}
			slots[i] = group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog: discover: %w", err)
	}

	var groups []models.ChapterGroup
	for _, group := range slots {
		if group != nil {
			groups = append(groups, *group)
		}
	}
	if len(groups) == 0 {
		return nil, apperr.ErrNoTutorials
	}
	d.assignUniqueIDs(groups)

	d.logger.Info("catalog: discovered",
		slog.Int("groups", len(groups)),
		slog.String("strategy", d.manifest.Strategy))
	return models.NewCatalog(groups), nil
}

// discoverGroup returns nil (no error) when the group's index is absent.
func (d *Discoverer) discoverGroup(ctx context.Context, spec GroupSpec) (*models.ChapterGroup, error) {
	dir := path.Join(d.manifest.ContentDir, spec.Dir)
	indexPath := path.Join(dir, d.manifest.IndexFile)

	ok, err := d.exists(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		d.logger.Debug("catalog: group skipped", slog.String("dir", spec.Dir))
		return nil, nil
	}

	var found []candidate
	switch d.manifest.Strategy {
	case StrategyProbe:
		found, err = d.probeNumbered(ctx, spec, dir)
	default:
		found, err = d.probeManifest(ctx, spec, dir)
	}
	if err != nil {
		return nil, err
	}

	// Numbered chapters ascend; unnumbered ones follow in manifest order.
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].numbered != found[j].numbered {
			return found[i].numbered
		}
		return found[i].numbered && found[i].number < found[j].number
	})

	name := spec.Title
	if name == "" {
		name = GroupName(spec.Dir, d.manifest.GroupPrefix)
	}
	chapters := []models.ChapterDescriptor{{
		ID:    IndexID(spec.Dir),
		Title: d.manifest.OverviewTitle,
		Path:  indexPath,
	}}
	for _, c := range found {
		chapters = append(chapters, c.desc)
	}

	d.logger.Debug("catalog: group admitted",
		slog.String("dir", spec.Dir), slog.Int("chapters", len(chapters)))
	return &models.ChapterGroup{Name: name, Dir: spec.Dir, Chapters: chapters}, nil
}

// probeManifest checks each declared chapter file.
func (d *Discoverer) probeManifest(ctx context.Context, spec GroupSpec, dir string) ([]candidate, error) {
	hits := make([]*candidate, len(spec.Chapters))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.manifest.Concurrency)
	for i, ch := range spec.Chapters {
		g.Go(func() error {
			p := path.Join(dir, ch.File)
			ok, err := d.exists(gCtx, p)
			if err != nil || !ok {
				return err
			}
			title := ch.Title
			if title == "" {
				title = Humanize(ch.File)
			}
			c := &candidate{desc: models.ChapterDescriptor{Title: title, Path: p}}
			if n, ok := chapterNumber(ch.File); ok {
				c.number, c.numbered = n, true
				c.desc.ID = ChapterID(spec.Dir, n)
			} else {
				c.desc.ID = SlugID(spec.Dir, ch.File)
			}
			hits[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compact(hits), nil
}

// probeNumbered tries each pattern for every chapter number up to the
// ceiling and keeps the first hit per number.
func (d *Discoverer) probeNumbered(ctx context.Context, spec GroupSpec, dir string) ([]candidate, error) {
	limit := d.manifest.Probe.MaxChapters
	hits := make([]*candidate, limit)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.manifest.Concurrency)
	for i := range limit {
		n := i + 1
		g.Go(func() error {
			for _, pattern := range d.manifest.Probe.Patterns {
				file := fmt.Sprintf(pattern, n)
				p := path.Join(dir, file)
				ok, err := d.exists(gCtx, p)
				if err != nil {
					return err
				}
				if ok {
					hits[i] = &candidate{number: n, numbered: true, desc: models.ChapterDescriptor{
						ID:    ChapterID(spec.Dir, n),
						Title: Humanize(file),
						Path:  p,
					}}
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compact(hits), nil
}

// exists fetches p and reports whether it succeeded. Only cancellation of
// ctx is returned as an error; every other failure counts as absent.
func (d *Discoverer) exists(ctx context.Context, p string) (bool, error) {
	_, err := d.fetcher.Fetch(ctx, p)
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		d.logger.Debug("catalog: probe failed", slog.String("path", p), slog.String("error", err.Error()))
	}
	return false, nil
}

func (d *Discoverer) uniqueGroups() ([]GroupSpec, error) {
	candidates := d.manifest.Groups
	if len(candidates) == 0 && d.scan != nil {
		scanned, err := ScanGroups(d.scan, d.manifest.ContentDir, d.manifest.IndexFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, apperr.ErrNoTutorials
			}
			return nil, err
		}
		d.logger.Debug("catalog: groups scanned", slog.Int("groups", len(scanned)))
		candidates = scanned
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]GroupSpec, 0, len(candidates))
	for _, g := range candidates {
		key := path.Clean(g.Dir)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out, nil
}

// assignUniqueIDs makes chapter ids unique across the catalog. Every
// admitted chapter is kept; a colliding id gets a numeric suffix, and the
// first holder in catalog order keeps the plain id.
func (d *Discoverer) assignUniqueIDs(groups []models.ChapterGroup) {
	seen := make(map[string]struct{})
	for gi := range groups {
		for ci := range groups[gi].Chapters {
			ch := &groups[gi].Chapters[ci]
			id := uniqueID(ch.ID, seen)
			if id != ch.ID {
				d.logger.Warn("catalog: duplicate chapter id renamed",
					slog.String("id", ch.ID), slog.String("renamed", id), slog.String("path", ch.Path))
				ch.ID = id
			}
		}
	}
}

func compact(hits []*candidate) []candidate {
	var out []candidate
	for _, h := range hits {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}
