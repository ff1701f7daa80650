package markdown

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NavPathAttr marks anchors that the page shell must open inside the viewer.
const NavPathAttr = "data-nav-path"

// ResolveLink resolves href against the directory of currentPath. It reports
// false for anything that is not a relative link to a Markdown file.
// A leading slash makes the link relative to the content root instead.
func ResolveLink(currentPath, href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), ".md") {
		return "", false
	}
	if strings.HasPrefix(u.Path, "/") {
		return strings.TrimPrefix(path.Clean(u.Path), "/"), true
	}
	return path.Join(path.Dir(currentPath), u.Path), true
}

// RewriteLinks adds a data-nav-path attribute, holding the resolved resource
// path, to every anchor whose href is a relative Markdown link.
func RewriteLinks(fragment, currentPath string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("markdown: parse html: %w", err)
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			markAnchor(n, currentPath)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		visit(n)
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("markdown: render html: %w", err)
		}
	}
	return buf.String(), nil
}

func markAnchor(n *html.Node, currentPath string) {
	var href string
	for _, a := range n.Attr {
		if a.Key == "href" {
			href = a.Val
		}
		if a.Key == NavPathAttr {
			return
		}
	}
	resolved, ok := ResolveLink(currentPath, href)
	if !ok {
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: NavPathAttr, Val: resolved})
}
