package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/models"
	"github.com/starford/tutorview/internal/search"
	"github.com/starford/tutorview/internal/testutil"
)

type stubDiscoverer struct {
	cat *models.Catalog
	err error
}

func (d stubDiscoverer) Discover(context.Context) (*models.Catalog, error) {
	return d.cat, d.err
}

func fixtureCatalog() *models.Catalog {
	return models.NewCatalog([]models.ChapterGroup{
		{Name: "GroupA", Dir: "groupA", Chapters: []models.ChapterDescriptor{
			{ID: "groupA-index", Title: "Overview", Path: "output/groupA/index.md"},
			{ID: "groupA-3", Title: "03 Bar", Path: "output/groupA/03_bar_.md"},
			{ID: "groupA-4", Title: "04 Foo", Path: "output/groupA/04_foo_.md"},
		}},
		{Name: "GroupB", Dir: "groupB", Chapters: []models.ChapterDescriptor{
			{ID: "groupB-index", Title: "Overview", Path: "output/groupB/index.md"},
		}},
	})
}

func fixtureFiles() map[string]string {
	return map[string]string{
		"output/groupA/index.md":   "# Group A\n\nWelcome.\n",
		"output/groupA/03_bar_.md": "# Bar\n\nNext: [foo](04_foo_.md), extra: [x](notes.md)\n",
		"output/groupA/04_foo_.md": "# Foo\n\nglobal.button.save: Save\n\n```mermaid\ngraph TD\n  A-->B\n```\n",
		"output/groupA/notes.md":   "# Notes\n",
		"output/groupB/index.md":   "# Group B\n",
	}
}

func newDeps(f *testutil.FakeFetcher, d Discoverer) Deps {
	logger := testutil.QuietLogger()
	return Deps{
		Discoverer: d,
		Fetcher:    f,
		Renderer:   markdown.NewRenderer(markdown.DefaultOptions(), logger),
		Searcher:   search.NewEngine(f, search.DefaultOptions(), logger),
		Logger:     logger,
	}
}

func openSession(t *testing.T, fragment string) (*Session, *testutil.FakeFetcher, Update) {
	t.Helper()
	f := testutil.NewFakeFetcher(fixtureFiles())
	s := NewSession("test", newDeps(f, stubDiscoverer{cat: fixtureCatalog()}))
	u, err := s.Open(context.Background(), fragment)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, f, u
}

func TestOpen_DefaultsToFirstChapter(t *testing.T) {
	_, _, u := openSession(t, "")
	if u.State != StateReady {
		t.Fatalf("state = %s", u.State)
	}
	if u.Active != "groupA-index" || u.Fragment != "groupA-index" {
		t.Errorf("active = %q fragment = %q", u.Active, u.Fragment)
	}
	if !slices.Equal(u.Expanded, []string{"groupA"}) {
		t.Errorf("expanded = %v", u.Expanded)
	}
	if !strings.Contains(u.Pane, "Welcome.") {
		t.Errorf("pane = %s", u.Pane)
	}
}

func TestOpen_FragmentRoundTrip(t *testing.T) {
	for _, ch := range fixtureCatalog().Chapters() {
		_, _, u := openSession(t, "#"+ch.ID)
		if u.Active != ch.ID || u.Fragment != ch.ID {
			t.Errorf("fragment %q: active = %q fragment = %q", ch.ID, u.Active, u.Fragment)
		}
	}
}

func TestOpen_UnknownFragmentFallsBack(t *testing.T) {
	_, _, u := openSession(t, "no-such-chapter")
	if u.Active != "groupA-index" {
		t.Errorf("active = %q", u.Active)
	}
}

func TestOpen_NoTutorials(t *testing.T) {
	f := testutil.NewFakeFetcher(nil)
	s := NewSession("test", newDeps(f, stubDiscoverer{err: apperr.ErrNoTutorials}))
	u, err := s.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if u.State != StateFailed || !strings.Contains(u.Pane, "No tutorials found") {
		t.Errorf("update = %+v", u)
	}
	if u.Sidebar != "" || u.Active != "" {
		t.Errorf("sidebar should be empty: %+v", u)
	}
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"sidebar":""`) {
		t.Errorf("failed update must clear the sidebar: %s", raw)
	}
	if f.CallCount() != 0 {
		t.Errorf("no chapter should be fetched, got %v", f.Calls())
	}
	if _, err := s.Navigate(context.Background(), NavigationRequest{ID: "x"}); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("Navigate err = %v", err)
	}
	if _, _, err := s.Search(context.Background(), "x"); !errors.Is(err, apperr.ErrNotReady) {
		t.Errorf("Search err = %v", err)
	}
}

func TestToggleGroup_Idempotent(t *testing.T) {
	s, _, before := openSession(t, "")
	if _, err := s.ToggleGroup("groupB"); err != nil {
		t.Fatal(err)
	}
	mid := s.Snapshot()
	if !slices.Contains(mid.Expanded, "groupB") {
		t.Errorf("groupB should be expanded: %v", mid.Expanded)
	}
	after, err := s.ToggleGroup("groupB")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(before.Expanded, after.Expanded) || before.Sidebar != after.Sidebar {
		t.Errorf("double toggle changed state: %v -> %v", before.Expanded, after.Expanded)
	}
	if _, err := s.ToggleGroup("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown group err = %v", err)
	}
}

func TestNavigate_LinkSyncsSidebar(t *testing.T) {
	s, _, _ := openSession(t, "groupA-3")
	u := s.Snapshot()
	if !strings.Contains(u.Pane, `data-nav-path="output/groupA/04_foo_.md"`) {
		t.Fatalf("link not rewritten: %s", u.Pane)
	}

	u, err := s.Navigate(context.Background(), NavigationRequest{Path: "output/groupA/04_foo_.md", Origin: OriginLink})
	if err != nil {
		t.Fatal(err)
	}
	if u.Active != "groupA-4" || u.Fragment != "groupA-4" {
		t.Errorf("active = %q fragment = %q", u.Active, u.Fragment)
	}
	if !u.Diagrams {
		t.Error("diagram flag expected")
	}
	if strings.Count(u.Sidebar, "active") != 1 {
		t.Errorf("exactly one active entry expected: %s", u.Sidebar)
	}
}

func TestNavigate_LinkOutsideMenuKeepsSidebar(t *testing.T) {
	s, _, _ := openSession(t, "groupA-3")
	u, err := s.Navigate(context.Background(), NavigationRequest{Path: "output/groupA/notes.md", Origin: OriginLink})
	if err != nil {
		t.Fatal(err)
	}
	if u.Active != "groupA-3" || u.Fragment != "groupA-3" {
		t.Errorf("sidebar moved: active = %q fragment = %q", u.Active, u.Fragment)
	}
	if !strings.Contains(u.Pane, "Notes") {
		t.Errorf("pane = %s", u.Pane)
	}
}

func TestNavigate_FetchFailureShowsError(t *testing.T) {
	s, f, _ := openSession(t, "")
	f.Fail("output/groupA/04_foo_.md", errors.New("unreachable"))
	u, err := s.Navigate(context.Background(), NavigationRequest{ID: "groupA-4", Origin: OriginSidebar})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u.Pane, "output/groupA/04_foo_.md") || strings.Contains(u.Pane, "Welcome.") {
		t.Errorf("pane = %s", u.Pane)
	}
	if u.Active != "groupA-4" {
		t.Errorf("active = %q", u.Active)
	}
}

func TestNavigate_UnknownID(t *testing.T) {
	s, _, _ := openSession(t, "")
	if _, err := s.Navigate(context.Background(), NavigationRequest{ID: "nope"}); !errors.Is(err, apperr.ErrUnknownChapter) {
		t.Errorf("err = %v", err)
	}
}

func TestNavigate_StaleCompletionDiscarded(t *testing.T) {
	s, f, _ := openSession(t, "")
	release := f.Hold("output/groupA/03_bar_.md")
	defer release()

	slow := make(chan Update, 1)
	go func() {
		u, _ := s.Navigate(context.Background(), NavigationRequest{ID: "groupA-3", Origin: OriginSidebar})
		slow <- u
	}()
	waitForCall(t, f, "output/groupA/03_bar_.md")

	fast, err := s.Navigate(context.Background(), NavigationRequest{ID: "groupB-index", Origin: OriginSidebar})
	if err != nil {
		t.Fatal(err)
	}
	if fast.Stale || fast.Active != "groupB-index" {
		t.Fatalf("fast = %+v", fast)
	}

	release()
	if u := <-slow; !u.Stale {
		t.Errorf("slow completion should be stale: %+v", u)
	}
	final := s.Snapshot()
	if final.Active != "groupB-index" || !strings.Contains(final.Pane, "Group B") {
		t.Errorf("stale result overwrote state: %+v", final)
	}
}

func TestSearch_ResultsAndNavigation(t *testing.T) {
	s, f, _ := openSession(t, "")
	f.Reset()

	u, ran, err := s.Search(context.Background(), "  ")
	if err != nil || ran {
		t.Fatalf("blank search ran=%v err=%v", ran, err)
	}
	if u.View != ViewChapter || f.CallCount() != 0 {
		t.Errorf("blank search had effects: view=%s calls=%v", u.View, f.Calls())
	}

	u, ran, err = s.Search(context.Background(), "Save")
	if err != nil || !ran {
		t.Fatalf("search ran=%v err=%v", ran, err)
	}
	if u.View != ViewResults {
		t.Errorf("view = %s", u.View)
	}
	if !strings.Contains(u.Results, "Found 2 matches in 1 chapters") {
		t.Errorf("results = %s", u.Results)
	}
	if !strings.Contains(u.Results, "<mark>save</mark>") || !strings.Contains(u.Results, "<mark>Save</mark>") {
		t.Errorf("highlight missing: %s", u.Results)
	}
	if !strings.Contains(u.Results, `data-chapter-id="groupA-4"`) {
		t.Errorf("result title not clickable: %s", u.Results)
	}

	u, err = s.Navigate(context.Background(), NavigationRequest{ID: "groupA-4", Origin: OriginResult})
	if err != nil {
		t.Fatal(err)
	}
	if u.View != ViewChapter || u.Active != "groupA-4" || u.Results != "" {
		t.Errorf("after result click: %+v", u)
	}
}

func TestSearch_NoResults(t *testing.T) {
	s, _, _ := openSession(t, "")
	u, _, err := s.Search(context.Background(), "zzz")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u.Results, "No results found for &#34;zzz&#34;") {
		t.Errorf("results = %s", u.Results)
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	f := testutil.NewFakeFetcher(fixtureFiles())
	r := NewRegistry(newDeps(f, stubDiscoverer{cat: fixtureCatalog()}), time.Minute)

	s, u, err := r.Create(context.Background(), "groupB-index")
	if err != nil {
		t.Fatal(err)
	}
	if u.Active != "groupB-index" {
		t.Errorf("active = %q", u.Active)
	}
	got, err := r.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, apperr.ErrUnknownSession) {
		t.Errorf("err = %v", err)
	}

	if n := r.Expire(time.Now()); n != 0 {
		t.Errorf("fresh session expired")
	}
	if n := r.Expire(time.Now().Add(2 * time.Minute)); n != 1 || r.Len() != 0 {
		t.Errorf("expired %d, left %d", n, r.Len())
	}
}

func waitForCall(t *testing.T, f *testutil.FakeFetcher, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if slices.Contains(f.Calls(), path) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("fetch of %s never started", path)
}

func TestSidebarSelectionSurvivesReload(t *testing.T) {
	s, _, _ := openSession(t, "")
	u, err := s.Navigate(context.Background(), NavigationRequest{ID: "groupA-4", Origin: OriginSidebar})
	if err != nil {
		t.Fatal(err)
	}

	_, _, reloaded := openSession(t, u.Fragment)
	if reloaded.Active != "groupA-4" || reloaded.Path != u.Path {
		t.Errorf("reload selected %q (%s), want groupA-4", reloaded.Active, reloaded.Path)
	}
}

func TestSearch_BlankKeepsPriorResults(t *testing.T) {
	s, f, _ := openSession(t, "")
	first, _, err := s.Search(context.Background(), "welcome")
	if err != nil {
		t.Fatal(err)
	}
	f.Reset()

	again, ran, err := s.Search(context.Background(), "")
	if err != nil || ran {
		t.Fatalf("ran=%v err=%v", ran, err)
	}
	if again.Results != first.Results || again.View != ViewResults {
		t.Errorf("prior results changed")
	}
	if f.CallCount() != 0 {
		t.Errorf("blank search fetched %v", f.Calls())
	}
}
