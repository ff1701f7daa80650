package catalog

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ScanGroups lists candidate groups under contentDir of fsys. Every visible
// subdirectory becomes a group whose chapters are its Markdown files other
// than indexFile, in name order. Whether a group is admitted is still decided
// by probing its index.
func ScanGroups(fsys fs.FS, contentDir, indexFile string) ([]GroupSpec, error) {
	dir := path.Clean("/" + contentDir)[1:]
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: scan %s: %w", dir, err)
	}

	var groups []GroupSpec
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files, err := fs.ReadDir(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("catalog: scan %s: %w", e.Name(), err)
		}
		g := GroupSpec{Dir: e.Name()}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || name == indexFile || !strings.HasSuffix(name, ".md") {
				continue
			}
			g.Chapters = append(g.Chapters, ChapterSpec{File: name})
		}
		groups = append(groups, g)
	}
	return groups, nil
}
