package markdown

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is Markdown source split into frontmatter and body.
type Document struct {
	Frontmatter map[string]any
	Body        []byte
	Title       string
}

// Split separates YAML frontmatter (between leading --- delimiters) from the
// Markdown body. Missing or invalid frontmatter leaves the whole input as body.
func Split(data []byte) Document {
	fm, body := splitFrontmatter(data)
	return Document{Frontmatter: fm, Body: body, Title: deriveTitle(fm, body)}
}

func splitFrontmatter(data []byte) (map[string]any, []byte) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, data
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, data
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := bytes.TrimLeft(afterDelim, "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil || fm == nil {
		return nil, data
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body []byte) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
