// Package markdown converts chapter Markdown into sanitized HTML for the content pane.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Options configures a Renderer.
type Options struct {
	// DiagramLanguages are fenced-block languages emitted as diagram blocks.
	DiagramLanguages []string
	// HighlightStyle is a chroma style name; empty disables highlighting.
	HighlightStyle string
}

// DefaultOptions returns mermaid diagrams with the github highlight style.
func DefaultOptions() Options {
	return Options{
		DiagramLanguages: []string{"mermaid"},
		HighlightStyle:   "github",
	}
}

// Page is one rendered chapter.
type Page struct {
	HTML     string
	Title    string
	Diagrams bool // the HTML contains at least one diagram block
}

// Renderer converts Markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	opts      Options
	diagramRe *regexp.Regexp
	logger    *slog.Logger
}

var classRe = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)

// NewRenderer builds a Renderer with GFM, heading ids, chroma highlighting
// (class based) and diagram tagging.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	langs := make(map[string]bool, len(opts.DiagramLanguages))
	var quoted []string
	for _, l := range opts.DiagramLanguages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		langs[l] = true
		quoted = append(quoted, regexp.QuoteMeta(l))
	}

	exts := []goldmark.Extender{
		extension.GFM,
		&diagramExtension{languages: langs},
	}
	if opts.HighlightStyle != "" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(classRe).OnElements("pre", "code", "span", "div")
	policy.AllowAttrs("id").Matching(bluemonday.Paragraph).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	r := &Renderer{md: md, policy: policy, opts: opts, logger: logger}
	if len(quoted) > 0 {
		r.diagramRe = regexp.MustCompile(`<pre class="(?:` + strings.Join(quoted, "|") + `)">`)
	}
	return r
}

// Render converts source to HTML. It never fails: when conversion breaks the
// source is returned escaped inside a <pre> block.
func (r *Renderer) Render(source []byte) (page Page) {
	doc := Split(source)
	page.Title = doc.Title

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("markdown: render panicked", slog.String("panic", fmt.Sprint(rec)))
			page.HTML = fallback(source)
			page.Diagrams = false
		}
	}()

	var buf bytes.Buffer
	if err := r.md.Convert(doc.Body, &buf); err != nil {
		r.logger.Warn("markdown: convert failed", slog.String("error", err.Error()))
		page.HTML = fallback(source)
		return page
	}
	page.HTML = r.policy.Sanitize(buf.String())
	page.Diagrams = r.diagramRe != nil && r.diagramRe.MatchString(page.HTML)
	return page
}

// RenderChapter renders source and rewrites its relative Markdown links
// against chapterPath.
func (r *Renderer) RenderChapter(source []byte, chapterPath string) Page {
	page := r.Render(source)
	rewritten, err := RewriteLinks(page.HTML, chapterPath)
	if err != nil {
		r.logger.Warn("markdown: link rewrite failed",
			slog.String("path", chapterPath), slog.String("error", err.Error()))
		return page
	}
	page.HTML = rewritten
	return page
}

// WriteHighlightCSS writes the stylesheet for the configured highlight style.
func (r *Renderer) WriteHighlightCSS(w io.Writer) error {
	if r.opts.HighlightStyle == "" {
		return nil
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	return formatter.WriteCSS(w, styles.Get(r.opts.HighlightStyle))
}

func fallback(source []byte) string {
	return "<pre>" + html.EscapeString(string(source)) + "</pre>"
}
