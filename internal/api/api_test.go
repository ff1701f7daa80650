package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/tutorview/internal/catalog"
	"github.com/starford/tutorview/internal/chapterservice"
	"github.com/starford/tutorview/internal/markdown"
	"github.com/starford/tutorview/internal/search"
	"github.com/starford/tutorview/internal/testutil"
	"github.com/starford/tutorview/internal/viewer"
)

var tree = map[string]string{
	"output/groupA/index.md":   "# Group A\n\nWelcome to group A.\n",
	"output/groupA/03_bar_.md": "# Bar\n\nNext: [foo](04_foo_.md)\n",
	"output/groupA/04_foo_.md": "# Foo\n\nglobal.button.save: Save\n",
	"output/groupB/index.md":   "# Group B\n",
}

// testEnv sets up a temp content tree, the viewer registry and the router.
func testEnv(t *testing.T, files map[string]string) http.Handler {
	t.Helper()
	logger := testutil.QuietLogger()
	_, fsys := testutil.ContentTree(t, files)

	m := catalog.DefaultManifest()
	m.Groups = []catalog.GroupSpec{
		{Dir: "groupA", Chapters: []catalog.ChapterSpec{{File: "03_bar_.md"}, {File: "04_foo_.md"}}},
		{Dir: "groupB"},
	}
	disc := catalog.NewDiscoverer(fsys, m, logger)
	renderer := markdown.NewRenderer(markdown.DefaultOptions(), logger)
	engine := search.NewEngine(fsys, search.DefaultOptions(), logger)

	reg := viewer.NewRegistry(viewer.Deps{
		Discoverer: disc,
		Fetcher:    fsys,
		Renderer:   renderer,
		Searcher:   engine,
		Logger:     logger,
	}, 0)
	svc := chapterservice.NewService(disc, fsys, renderer, engine)
	return NewRouter(reg, svc, nil)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, rd))
	return w
}

func openSession(t *testing.T, h http.Handler, fragment string) SessionResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", CreateSessionRequest{Fragment: fragment})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeUpdate(t *testing.T, w *httptest.ResponseRecorder) Update {
	t.Helper()
	var u Update
	if err := json.NewDecoder(w.Body).Decode(&u); err != nil {
		t.Fatalf("decode: %v (body %s)", err, w.Body.String())
	}
	return u
}

func TestCreateSession(t *testing.T) {
	h := testEnv(t, tree)
	resp := openSession(t, h, "groupA-3")
	if resp.Session == "" {
		t.Fatal("missing session id")
	}
	if resp.Update.State != viewer.StateReady || resp.Update.Active != "groupA-3" {
		t.Errorf("update = %+v", resp.Update)
	}

	w := do(t, h, http.MethodGet, "/sessions/"+resp.Session, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if u := decodeUpdate(t, w); u.Fragment != "groupA-3" {
		t.Errorf("fragment = %q", u.Fragment)
	}
}

func TestCreateSession_EmptyBody(t *testing.T) {
	h := testEnv(t, tree)
	w := do(t, h, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCreateSession_NoTutorials(t *testing.T) {
	h := testEnv(t, map[string]string{"unrelated.txt": "x"})
	resp := openSession(t, h, "")
	if resp.Update.State != viewer.StateFailed || !strings.Contains(resp.Update.Pane, "No tutorials found") {
		t.Errorf("update = %+v", resp.Update)
	}

	w := do(t, h, http.MethodPost, "/sessions/"+resp.Session+"/navigate", NavigateRequest{ID: "groupA-index"})
	if w.Code != http.StatusConflict {
		t.Errorf("navigate status = %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/catalog", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("catalog status = %d", w.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	h := testEnv(t, tree)
	w := do(t, h, http.MethodGet, "/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestNavigate(t *testing.T) {
	h := testEnv(t, tree)
	sid := openSession(t, h, "").Session

	w := do(t, h, http.MethodPost, "/sessions/"+sid+"/navigate",
		NavigateRequest{Path: "output/groupA/04_foo_.md", Origin: "link"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	u := decodeUpdate(t, w)
	if u.Active != "groupA-4" || u.Fragment != "groupA-4" {
		t.Errorf("active = %q fragment = %q", u.Active, u.Fragment)
	}

	w = do(t, h, http.MethodPost, "/sessions/"+sid+"/navigate", NavigateRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty request status = %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/sessions/"+sid+"/navigate", NavigateRequest{ID: "groupZ-1"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", w.Code)
	}
}

func TestToggleGroup(t *testing.T) {
	h := testEnv(t, tree)
	sid := openSession(t, h, "").Session

	w := do(t, h, http.MethodPost, "/sessions/"+sid+"/groups/groupB/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	u := decodeUpdate(t, w)
	if len(u.Expanded) != 2 {
		t.Errorf("expanded = %v", u.Expanded)
	}

	w = do(t, h, http.MethodPost, "/sessions/"+sid+"/groups/missing/toggle", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing group status = %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	h := testEnv(t, tree)
	sid := openSession(t, h, "").Session

	w := do(t, h, http.MethodGet, "/sessions/"+sid+"/search?q=%20", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("blank query status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/sessions/"+sid+"/search?q=save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	u := decodeUpdate(t, w)
	if u.View != viewer.ViewResults || !strings.Contains(u.Results, "<mark>Save</mark>") {
		t.Errorf("results = %s", u.Results)
	}
}

func TestCatalog(t *testing.T) {
	h := testEnv(t, tree)
	w := do(t, h, http.MethodGet, "/catalog", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CatalogResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Groups) != 2 || resp.Total != 4 {
		t.Errorf("catalog = %+v", resp)
	}
	if resp.Groups[0].Chapters[1].ID != "groupA-3" {
		t.Errorf("order = %+v", resp.Groups[0].Chapters)
	}
}

func TestGetChapter(t *testing.T) {
	h := testEnv(t, tree)
	w := do(t, h, http.MethodGet, "/chapters/groupA-3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var d ChapterDetail
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	if d.Path != "output/groupA/03_bar_.md" || !strings.Contains(d.HTML, "data-nav-path") {
		t.Errorf("detail = %+v", d)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	req := httptest.NewRequest(http.MethodGet, "/chapters/groupA-3", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/chapters/output/groupA/missing.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}
