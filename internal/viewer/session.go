// Package viewer holds the per-tab navigation state of the tutorial browser.
// A Session owns the sidebar, the content pane and the search results; the
// page shell forwards user actions to it and applies the returned Update.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/fetch"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/models"
	"github.com/starford/tutorview/internal/search"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Origin names the user action behind a NavigationRequest.
type Origin string

const (
	OriginStartup Origin = "startup"
	OriginSidebar Origin = "sidebar"
	OriginLink    Origin = "link"
	OriginResult  Origin = "result"
)

// NavigationRequest asks the session to show a chapter. ID wins over Path.
type NavigationRequest struct {
	ID     string `json:"id,omitempty"`
	Path   string `json:"path,omitempty"`
	Origin Origin `json:"origin,omitempty"`
}

// View names what the main area currently shows.
type View string

const (
	ViewChapter View = "chapter"
	ViewResults View = "results"
)

// Update is the complete visible state after an action. A stale update
// carries nothing else and must be ignored by the shell. Sidebar is always
// sent so a failed session clears the previous tree.
type Update struct {
	Stale    bool     `json:"stale,omitempty"`
	State    State    `json:"state,omitempty"`
	View     View     `json:"view,omitempty"`
	Sidebar  string   `json:"sidebar"`
	Pane     string   `json:"pane,omitempty"`
	Results  string   `json:"results,omitempty"`
	Active   string   `json:"active,omitempty"`
	Expanded []string `json:"expanded,omitempty"`
	Fragment string   `json:"fragment"`
	Path     string   `json:"path,omitempty"`
	Title    string   `json:"title,omitempty"`
	Diagrams bool     `json:"diagrams,omitempty"`
}

// Discoverer builds the chapter catalog.
type Discoverer interface {
	Discover(ctx context.Context) (*models.Catalog, error)
}

// Searcher runs a full-text search over a catalog.
type Searcher interface {
	Search(ctx context.Context, cat *models.Catalog, query string) ([]search.Result, bool, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Discoverer Discoverer
	Fetcher    fetch.Fetcher
	Renderer   *markdown.Renderer
	Searcher   Searcher
	Logger     *slog.Logger
}

// Session is the navigation state of one browser tab. Fetching, rendering
// and searching happen outside the lock; a token taken before the work
// decides whether its result may still be committed.
type Session struct {
	id   string
	deps Deps

	mu       sync.Mutex
	state    State
	catalog  *models.Catalog
	sidebar  Sidebar
	view     View
	pane     string
	results  string
	path     string
	title    string
	diagrams bool
	fragment string
	token    uint64
	lastSeen time.Time
}

// NewSession creates a Session in the loading state.
func NewSession(id string, deps Deps) *Session {
	return &Session{
		id:       id,
		deps:     deps,
		state:    StateLoading,
		sidebar:  newSidebar(),
		view:     ViewChapter,
		pane:     execute("loading", nil),
		lastSeen: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Catalog returns the discovered catalog, nil until the session is ready.
func (s *Session) Catalog() *models.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Open runs discovery and shows the initial chapter: the one whose id equals
// fragment, otherwise the first chapter of the first group. When discovery
// admits nothing the session fails and the pane reports it.
func (s *Session) Open(ctx context.Context, fragment string) (Update, error) {
	cat, err := s.deps.Discoverer.Discover(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.catalog = nil
		s.pane = execute("failed", nil)
		s.view = ViewChapter
		s.fragment = ""
		u := s.snapshotLocked()
		s.mu.Unlock()

		if errors.Is(err, apperr.ErrNoTutorials) {
			s.deps.Logger.Warn("viewer: no tutorials found", slog.String("session", s.id))
			return u, nil
		}
		s.deps.Logger.Error("viewer: discovery failed",
			slog.String("session", s.id), slog.String("error", err.Error()))
		return u, fmt.Errorf("viewer: open: %w", err)
	}

	s.mu.Lock()
	s.catalog = cat
	s.state = StateReady
	s.sidebar = newSidebar()
	s.mu.Unlock()

	initial, _, ok := cat.ByID(strings.TrimPrefix(fragment, "#"))
	if !ok {
		initial, _, _ = cat.Default()
	}
	return s.Navigate(ctx, NavigationRequest{ID: initial.ID, Origin: OriginStartup})
}

// Navigate is the single dispatcher for every chapter change. It fetches and
// renders the target, then moves the sidebar highlight and the fragment.
//
// A request by id always moves the highlight, even when the fetch fails. A
// request by path moves it only when a sidebar entry has exactly that path;
// otherwise the content is shown and the sidebar and fragment stay put.
func (s *Session) Navigate(ctx context.Context, req NavigationRequest) (Update, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return Update{}, apperr.ErrNotReady
	}
	cat := s.catalog
	var (
		target   string
		entry    models.ChapterDescriptor
		groupDir string
		inMenu   bool
	)
	if req.ID != "" {
		entry, groupDir, inMenu = cat.ByID(req.ID)
		if !inMenu {
			s.mu.Unlock()
			return Update{}, fmt.Errorf("viewer: navigate %q: %w", req.ID, apperr.ErrUnknownChapter)
		}
		target = entry.Path
	} else {
		target = cleanPath(req.Path)
		if target == "" {
			s.mu.Unlock()
			return Update{}, fmt.Errorf("viewer: navigate: empty path: %w", apperr.ErrUnknownChapter)
		}
		entry, groupDir, inMenu = cat.ByPath(target)
	}
	s.token++
	token := s.token
	s.lastSeen = time.Now()
	s.mu.Unlock()

	body, fetchErr := s.deps.Fetcher.Fetch(ctx, target)
	var page markdown.Page
	if fetchErr == nil {
		page = s.deps.Renderer.RenderChapter(body, target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.deps.Logger.Debug("viewer: stale navigation discarded",
			slog.String("session", s.id), slog.String("path", target))
		return Update{Stale: true}, nil
	}

	s.view = ViewChapter
	s.results = ""
	s.path = target
	if fetchErr != nil {
		s.deps.Logger.Warn("viewer: chapter fetch failed",
			slog.String("session", s.id),
			slog.String("path", target),
			slog.String("error", fetchErr.Error()))
		s.pane = renderChapterError(target)
		s.title = ""
		s.diagrams = false
	} else {
		s.pane = renderChapter(target, page.HTML)
		s.title = page.Title
		s.diagrams = page.Diagrams
	}
	if inMenu {
		s.sidebar.Activate(entry.ID, groupDir)
		s.fragment = entry.ID
		if s.title == "" && fetchErr == nil {
			s.title = entry.Title
		}
	}
	return s.snapshotLocked(), nil
}

// ToggleGroup flips the expansion of the group with directory dir.
func (s *Session) ToggleGroup(dir string) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return Update{}, apperr.ErrNotReady
	}
	found := false
	for _, g := range s.catalog.Groups() {
		if g.Dir == dir {
			found = true
			break
		}
	}
	if !found {
		return Update{}, fmt.Errorf("viewer: group %q: %w", dir, apperr.ErrNotFound)
	}
	s.sidebar.Toggle(dir)
	s.lastSeen = time.Now()
	return s.snapshotLocked(), nil
}

// Search runs query over every chapter and shows the results in the main
// area. A blank query changes nothing and reports false.
func (s *Session) Search(ctx context.Context, query string) (Update, bool, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return Update{}, false, apperr.ErrNotReady
	}
	if strings.TrimSpace(query) == "" {
		u := s.snapshotLocked()
		s.mu.Unlock()
		return u, false, nil
	}
	cat := s.catalog
	s.token++
	token := s.token
	s.lastSeen = time.Now()
	s.mu.Unlock()

	results, _, err := s.deps.Searcher.Search(ctx, cat, query)
	if err != nil {
		return Update{}, true, fmt.Errorf("viewer: search: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return Update{Stale: true}, true, nil
	}
	s.view = ViewResults
	s.results = renderResults(strings.TrimSpace(query), results)
	return s.snapshotLocked(), true, nil
}

// Snapshot returns the current visible state.
func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) snapshotLocked() Update {
	u := Update{
		State:    s.state,
		View:     s.view,
		Pane:     s.pane,
		Results:  s.results,
		Active:   s.sidebar.Active(),
		Fragment: s.fragment,
		Path:     s.path,
		Title:    s.title,
		Diagrams: s.diagrams && s.view == ViewChapter,
	}
	if s.catalog != nil {
		u.Sidebar = renderSidebar(s.catalog, &s.sidebar)
		u.Expanded = s.sidebar.ExpandedDirs(s.catalog)
	}
	return u
}

func cleanPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p
}
