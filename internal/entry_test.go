package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/tutorview/internal/catalog"
	"github.com/starford/tutorview/internal/sse"
	"github.com/starford/tutorview/internal/testutil"
	"github.com/starford/tutorview/internal/viewer"
)

func testRouter(t *testing.T, files map[string]string, mutate func(*Config)) http.Handler {
	t.Helper()
	root, _ := testutil.ContentTree(t, files)

	cfg := NewDefaultConfig()
	cfg.Source.Root = root
	cfg.Catalog.Groups = []catalog.GroupSpec{{Dir: "groupA"}}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	app := &application{config: cfg, logger: testutil.QuietLogger()}
	c, err := app.build()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.close)

	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	return newRouter(c, viewer.NewRegistry(c.viewerDeps(), time.Minute), broker)
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestRouter_Health(t *testing.T) {
	h := testRouter(t, map[string]string{"output/groupA/index.md": "# A\n"}, nil)
	if w := get(h, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	if w := get(h, "/health/ready"); w.Code != http.StatusOK {
		t.Errorf("ready = %d, body %s", w.Code, w.Body.String())
	}

	empty := testRouter(t, map[string]string{"README.md": "x"}, nil)
	if w := get(empty, "/health/ready"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready without tutorials = %d", w.Code)
	}
}

func TestRouter_PageAndAssets(t *testing.T) {
	h := testRouter(t, map[string]string{"output/groupA/index.md": "# A\n"}, nil)

	w := get(h, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `id="sidebar"`) {
		t.Errorf("index = %d", w.Code)
	}
	w = get(h, "/assets/highlight.css")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), ".chroma") {
		t.Errorf("highlight.css = %d %q", w.Code, w.Body.String())
	}
	if w := get(h, "/assets/app.js"); w.Code != http.StatusOK {
		t.Errorf("app.js = %d", w.Code)
	}
	if w := get(h, "/api/catalog"); w.Code != http.StatusOK {
		t.Errorf("catalog = %d", w.Code)
	}
}

func TestRouter_WithCache(t *testing.T) {
	h := testRouter(t, map[string]string{"output/groupA/index.md": "# A\n"}, func(c *Config) {
		c.Cache = CacheConfig{Enabled: true, Path: ":memory:", TTL: time.Minute}
	})
	for range 2 {
		if w := get(h, "/api/chapters/groupA-index"); w.Code != http.StatusOK {
			t.Fatalf("chapter = %d %s", w.Code, w.Body.String())
		}
	}
}

func TestService_ScansContentDirWithoutGroups(t *testing.T) {
	root, _ := testutil.ContentTree(t, map[string]string{
		"output/admin/index.md":     "# Admin\n",
		"output/admin/01_intro_.md": "# Intro\n",
		"output/front/index.md":     "# Front\n",
	})
	cfg := NewDefaultConfig()
	cfg.Source.Root = root

	svc, closeFn, err := Service(WithConfig(cfg), WithLogger(testutil.QuietLogger()))
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	defer closeFn()

	cat, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(cat.Groups()) != 2 || cat.Len() != 3 {
		t.Errorf("catalog = %+v", cat.Groups())
	}
}
