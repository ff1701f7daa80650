// Package models defines the domain types for tutorview.
package models

// ChapterDescriptor identifies one Markdown chapter in the catalog.
type ChapterDescriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// ChapterGroup is one discovered tutorial directory.
type ChapterGroup struct {
	Name     string              `json:"name"`
	Dir      string              `json:"dir"`
	Chapters []ChapterDescriptor `json:"chapters"`
}

// Catalog is the discovered group -> chapters structure. It is built once by
// catalog.Discover and never mutated afterwards, so it is safe to share.
type Catalog struct {
	groups []ChapterGroup
	byID   map[string]location
	byPath map[string]location
}

type location struct {
	group   int
	chapter int
}

// NewCatalog indexes groups in the given order. Chapter ids and paths must be
// unique across all groups; later duplicates are not indexed.
func NewCatalog(groups []ChapterGroup) *Catalog {
	c := &Catalog{
		groups: groups,
		byID:   make(map[string]location),
		byPath: make(map[string]location),
	}
	for gi, g := range groups {
		for ci, ch := range g.Chapters {
			if _, dup := c.byID[ch.ID]; !dup {
				c.byID[ch.ID] = location{group: gi, chapter: ci}
			}
			if _, dup := c.byPath[ch.Path]; !dup {
				c.byPath[ch.Path] = location{group: gi, chapter: ci}
			}
		}
	}
	return c
}

// Groups returns the groups in discovery order. Callers must not modify the result.
func (c *Catalog) Groups() []ChapterGroup {
	if c == nil {
		return nil
	}
	return c.groups
}

// Empty reports whether no group was admitted.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.groups) == 0
}

// Chapters returns every chapter across all groups in catalog order.
func (c *Catalog) Chapters() []ChapterDescriptor {
	var out []ChapterDescriptor
	for _, g := range c.Groups() {
		out = append(out, g.Chapters...)
	}
	return out
}

// Len returns the total number of chapters.
func (c *Catalog) Len() int {
	n := 0
	for _, g := range c.Groups() {
		n += len(g.Chapters)
	}
	return n
}

// ByID looks up a chapter by id and returns it with its group directory.
func (c *Catalog) ByID(id string) (ChapterDescriptor, string, bool) {
	if c == nil {
		return ChapterDescriptor{}, "", false
	}
	loc, ok := c.byID[id]
	if !ok {
		return ChapterDescriptor{}, "", false
	}
	return c.at(loc)
}

// ByPath looks up a chapter by its exact resource path.
func (c *Catalog) ByPath(path string) (ChapterDescriptor, string, bool) {
	if c == nil {
		return ChapterDescriptor{}, "", false
	}
	loc, ok := c.byPath[path]
	if !ok {
		return ChapterDescriptor{}, "", false
	}
	return c.at(loc)
}

// Default returns the first chapter of the first group.
func (c *Catalog) Default() (ChapterDescriptor, string, bool) {
	groups := c.Groups()
	if len(groups) == 0 || len(groups[0].Chapters) == 0 {
		return ChapterDescriptor{}, "", false
	}
	return groups[0].Chapters[0], groups[0].Dir, true
}

func (c *Catalog) at(loc location) (ChapterDescriptor, string, bool) {
	g := c.groups[loc.group]
	return g.Chapters[loc.chapter], g.Dir, true
}
