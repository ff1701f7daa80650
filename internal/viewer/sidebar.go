package viewer

import "github.com/starford/tutorview/internal/models"

// Sidebar tracks which groups are expanded and which chapter is active.
// Every group starts collapsed and at most one entry is active.
type Sidebar struct {
	expanded map[string]bool
	active   string
}

func newSidebar() Sidebar {
	return Sidebar{expanded: make(map[string]bool)}
}

// Toggle flips the expansion of the group with the given directory.
func (s *Sidebar) Toggle(dir string) {
	s.expanded[dir] = !s.expanded[dir]
}

// Activate marks id as the single active entry and expands its group.
func (s *Sidebar) Activate(id, groupDir string) {
	s.active = id
	s.expanded[groupDir] = true
}

// Active returns the active chapter id, or "".
func (s *Sidebar) Active() string { return s.active }

// Expanded reports whether the group is expanded.
func (s *Sidebar) Expanded(dir string) bool { return s.expanded[dir] }

// ExpandedDirs returns the expanded group directories in catalog order.
func (s *Sidebar) ExpandedDirs(cat *models.Catalog) []string {
	out := make([]string, 0)
	for _, g := range cat.Groups() {
		if s.expanded[g.Dir] {
			out = append(out, g.Dir)
		}
	}
	return out
}
