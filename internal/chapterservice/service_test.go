package chapterservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/catalog"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/search"
	"github.com/starford/tutorview/internal/testutil"
)

func newTestService(t *testing.T, files map[string]string) (*Service, *testutil.FakeFetcher) {
	t.Helper()
	logger := testutil.QuietLogger()
	f := testutil.NewFakeFetcher(files)
	m := catalog.DefaultManifest()
	m.Groups = []catalog.GroupSpec{
		{Dir: "intro", Chapters: []catalog.ChapterSpec{{File: "01_setup_.md"}}},
	}
	svc := NewService(
		catalog.NewDiscoverer(f, m, logger),
		f,
		markdown.NewRenderer(markdown.DefaultOptions(), logger),
		search.NewEngine(f, search.DefaultOptions(), logger),
	)
	return svc, f
}

var files = map[string]string{
	"output/intro/index.md":     "# Intro\n\nStart with [setup](01_setup_.md).\n",
	"output/intro/01_setup_.md": "# Setup\n\nRun the installer.\n",
	"output/intro/extra.md":     "# Extra\n",
}

func TestReadChapter_ByID(t *testing.T) {
	svc, _ := newTestService(t, files)
	d, err := svc.ReadChapter(context.Background(), "intro-1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Path != "output/intro/01_setup_.md" || d.Group != "intro" || d.Title != "01 Setup" {
		t.Errorf("detail = %+v", d)
	}
	if !strings.Contains(d.HTML, "Run the installer.") || d.Checksum == "" {
		t.Errorf("detail = %+v", d)
	}
}

func TestReadChapter_ByPath(t *testing.T) {
	svc, _ := newTestService(t, files)
	d, err := svc.ReadChapter(context.Background(), "output/intro/index.md")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "intro-index" || !strings.Contains(d.HTML, `data-nav-path="output/intro/01_setup_.md"`) {
		t.Errorf("detail = %+v", d)
	}

	d, err = svc.ReadChapter(context.Background(), "output/intro/extra.md")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "" || d.Title != "Extra" {
		t.Errorf("off-catalog detail = %+v", d)
	}
}

func TestReadChapter_Errors(t *testing.T) {
	svc, _ := newTestService(t, files)
	if _, err := svc.ReadChapter(context.Background(), "intro-9"); !errors.Is(err, apperr.ErrUnknownChapter) {
		t.Errorf("unknown id err = %v", err)
	}
	if _, err := svc.ReadChapter(context.Background(), "output/intro/missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing path err = %v", err)
	}

	empty, _ := newTestService(t, nil)
	if _, err := empty.Catalog(context.Background()); !errors.Is(err, apperr.ErrNoTutorials) {
		t.Errorf("empty catalog err = %v", err)
	}
}

func TestSearch(t *testing.T) {
	svc, f := newTestService(t, files)
	results, err := svc.Search(context.Background(), "INSTALLER")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chapter.ID != "intro-1" {
		t.Fatalf("results = %+v", results)
	}

	f.Reset()
	if results, err := svc.Search(context.Background(), " "); err != nil || results != nil || f.CallCount() != 0 {
		t.Errorf("blank search = %v, %v, calls %d", results, err, f.CallCount())
	}
}
