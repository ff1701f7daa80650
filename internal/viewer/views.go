package viewer

import (
	"bytes"
	"html/template"

	"github.com/starford/tutorview/internal/models"
	"github.com/starford/tutorview/internal/search"
)

var views = template.Must(template.New("views").Parse(`
{{define "sidebar"}}<nav class="sidebar-groups">
{{- range .}}
<section class="group{{if .Expanded}} expanded{{end}}">
<button type="button" class="group-header" data-group="{{.Dir}}" aria-expanded="{{.Expanded}}">{{.Name}}</button>
<ul class="chapters"{{if not .Expanded}} hidden{{end}}>
{{- range .Chapters}}
<li><a href="#{{.ID}}" class="chapter{{if .Active}} active{{end}}" data-chapter-id="{{.ID}}">{{.Title}}</a></li>
{{- end}}
</ul>
</section>
{{- end}}
</nav>{{end}}

{{define "chapter"}}<article class="chapter-content" data-path="{{.Path}}">{{.HTML}}</article>{{end}}

{{define "chapter-error"}}<div class="pane-error" role="alert">Could not load <code>{{.Path}}</code>.</div>{{end}}

{{define "loading"}}<div class="pane-loading">Loading tutorials...</div>{{end}}

{{define "failed"}}<div class="pane-error" role="alert">No tutorials found</div>{{end}}

{{define "results"}}<div class="search-results">
{{- if not .Results}}
<p class="no-results">No results found for "{{.Query}}"</p>
{{- else}}
<h2>Found {{.Total}} matches in {{len .Results}} chapters</h2>
{{- range .Results}}
<div class="result">
<a href="#{{.ID}}" class="result-title" data-chapter-id="{{.ID}}">{{.Title}}</a>
{{- range .Snippets}}
<p class="snippet">{{.Before}}<mark>{{.Hit}}</mark>{{.After}}</p>
{{- end}}
</div>
{{- end}}
{{- end}}
</div>{{end}}
`))

type sidebarGroup struct {
	Name     string
	Dir      string
	Expanded bool
	Chapters []sidebarEntry
}

type sidebarEntry struct {
	ID     string
	Title  string
	Active bool
}

type resultsView struct {
	Query   string
	Total   int
	Results []resultView
}

type resultView struct {
	ID       string
	Title    string
	Snippets []snippetView
}

type snippetView struct {
	Before, Hit, After string
}

func execute(name string, data any) string {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return buf.String()
}

func renderSidebar(cat *models.Catalog, sb *Sidebar) string {
	groups := make([]sidebarGroup, 0, len(cat.Groups()))
	for _, g := range cat.Groups() {
		sg := sidebarGroup{Name: g.Name, Dir: g.Dir, Expanded: sb.Expanded(g.Dir)}
		for _, ch := range g.Chapters {
			sg.Chapters = append(sg.Chapters, sidebarEntry{
				ID:     ch.ID,
				Title:  ch.Title,
				Active: ch.ID == sb.Active(),
			})
		}
		groups = append(groups, sg)
	}
	return execute("sidebar", groups)
}

func renderChapter(path, body string) string {
	return execute("chapter", struct {
		Path string
		HTML template.HTML
	}{Path: path, HTML: template.HTML(body)}) // body is sanitized by the markdown renderer
}

func renderChapterError(path string) string {
	return execute("chapter-error", struct{ Path string }{path})
}

func renderResults(query string, results []search.Result) string {
	v := resultsView{Query: query, Total: search.Count(results)}
	for _, r := range results {
		rv := resultView{ID: r.Chapter.ID, Title: r.Chapter.Title}
		for _, m := range r.Matches {
			end := m.MatchStart + m.MatchLength
			rv.Snippets = append(rv.Snippets, snippetView{
				Before: m.Context[:m.MatchStart],
				Hit:    m.Context[m.MatchStart:end],
				After:  m.Context[end:],
			})
		}
		v.Results = append(v.Results, rv)
	}
	return execute("results", v)
}
