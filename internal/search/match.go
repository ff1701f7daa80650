// Package search implements case-insensitive full-text search across the
// chapters of a catalog.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "..."

// Match is one occurrence of the query inside a chapter. MatchStart and
// MatchLength are byte offsets into Context locating the matched text exactly
// as it appears in the source.
type Match struct {
	Context     string `json:"context"`
	MatchStart  int    `json:"match_start"`
	MatchLength int    `json:"match_length"`
}

// Matched returns the verbatim matched slice of the context.
func (m Match) Matched() string {
	return m.Context[m.MatchStart : m.MatchStart+m.MatchLength]
}

// FindMatches scans text for non-overlapping case-insensitive occurrences of
// query. Each match carries up to contextChars runes on either side; a side
// that was cut short gets an ellipsis. limit <= 0 means no limit.
func FindMatches(text, query string, contextChars, limit int) []Match {
	if strings.TrimSpace(query) == "" || text == "" {
		return nil
	}
	if contextChars < 0 {
		contextChars = 0
	}

	hay := []rune(text)
	needle := fold([]rune(query))
	folded := fold(hay)

	// byteAt[i] is the byte offset of rune i in text; byteAt[len] is len(text).
	byteAt := make([]int, 0, len(hay)+1)
	for i := range text {
		byteAt = append(byteAt, i)
	}
	byteAt = append(byteAt, len(text))

	var out []Match
	for i := 0; i+len(needle) <= len(folded); {
		if !equalAt(folded, needle, i) {
			i++
			continue
		}
		end := i + len(needle)
		from := max(0, i-contextChars)
		to := min(len(hay), end+contextChars)

		var b strings.Builder
		if from > 0 {
			b.WriteString(ellipsis)
		}
		b.WriteString(text[byteAt[from]:byteAt[i]])
		start := b.Len()
		b.WriteString(text[byteAt[i]:byteAt[end]])
		length := b.Len() - start
		b.WriteString(text[byteAt[end]:byteAt[to]])
		if to < len(hay) {
			b.WriteString(ellipsis)
		}

		out = append(out, Match{Context: b.String(), MatchStart: start, MatchLength: length})
		if limit > 0 && len(out) >= limit {
			break
		}
		i = end
	}
	return out
}

// fold lowercases rune by rune so folded indexes line up with the original.
func fold(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		if r == utf8.RuneError {
			out[i] = r
			continue
		}
		out[i] = unicode.ToLower(r)
	}
	return out
}

func equalAt(hay, needle []rune, at int) bool {
	for j, r := range needle {
		if hay[at+j] != r {
			return false
		}
	}
	return true
}
