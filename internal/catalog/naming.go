package catalog

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	numberRe    = regexp.MustCompile(`\d+`)
	separatorRe = regexp.MustCompile(`[_\-\s]+`)
	slugRe      = regexp.MustCompile(`[^a-z0-9]+`)
)

// Humanize turns a chapter file name into a display title: the extension is
// stripped, separators become spaces and every word starts upper-case.
// "03_routing-basics_.md" becomes "03 Routing Basics".
func Humanize(file string) string {
	base := strings.TrimSuffix(path.Base(file), path.Ext(file))
	words := strings.Fields(separatorRe.ReplaceAllString(base, " "))
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

// GroupName derives a group's display label from its directory: the last
// path element with prefix stripped and the first letter capitalized.
func GroupName(dir, prefix string) string {
	name := path.Base(strings.TrimRight(dir, "/"))
	if prefix != "" {
		name = strings.TrimPrefix(name, prefix)
	}
	if name == "" {
		name = path.Base(dir)
	}
	return upperFirst(name)
}

// groupKey is the id prefix for a group directory.
func groupKey(dir string) string {
	return strings.ReplaceAll(strings.Trim(dir, "/"), "/", "-")
}

// IndexID returns the overview chapter id of a group directory.
func IndexID(dir string) string {
	return groupKey(dir) + "-index"
}

// ChapterID returns the id of chapter n in a group directory.
func ChapterID(dir string, n int) string {
	return groupKey(dir) + "-" + strconv.Itoa(n)
}

// SlugID returns the id of an unnumbered chapter file in a group directory:
// "Getting Started.md" in "admin" becomes "admin-getting-started".
func SlugID(dir, file string) string {
	base := strings.TrimSuffix(path.Base(file), path.Ext(file))
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if slug == "" {
		slug = "chapter"
	}
	return groupKey(dir) + "-" + slug
}

// uniqueID returns id, or id with the smallest "-k" suffix (k >= 2) not yet
// in seen, and records the result.
func uniqueID(id string, seen map[string]struct{}) string {
	out := id
	for k := 2; ; k++ {
		if _, taken := seen[out]; !taken {
			break
		}
		out = id + "-" + strconv.Itoa(k)
	}
	seen[out] = struct{}{}
	return out
}

// chapterNumber extracts the first number embedded in a file name.
func chapterNumber(file string) (int, bool) {
	m := numberRe.FindString(path.Base(file))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
