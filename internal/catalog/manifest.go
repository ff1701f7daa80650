// Package catalog discovers tutorial groups and chapters by probing the content root.
package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Discovery strategies.
const (
	StrategyManifest = "manifest"
	StrategyProbe    = "probe"
)

// Manifest declares where tutorials may live and which files to probe.
type Manifest struct {
	ContentDir    string      `yaml:"content_dir"`
	IndexFile     string      `yaml:"index_file"`
	OverviewTitle string      `yaml:"overview_title"`
	GroupPrefix   string      `yaml:"group_prefix"`
	Strategy      string      `yaml:"strategy"`
	Concurrency   int         `yaml:"concurrency"`
	Groups        []GroupSpec `yaml:"groups"`
	Probe         ProbeSpec   `yaml:"probe"`
}

// GroupSpec is one candidate tutorial directory.
type GroupSpec struct {
	Dir      string        `yaml:"dir"`
	Title    string        `yaml:"title"`
	Chapters []ChapterSpec `yaml:"chapters"`
}

// ChapterSpec is one candidate chapter file. In YAML it may be written as a
// bare file name or as a mapping with file and title.
type ChapterSpec struct {
	File  string `yaml:"file"`
	Title string `yaml:"title"`
}

// UnmarshalYAML accepts both "01_intro_.md" and {file: ..., title: ...}.
func (c *ChapterSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.File = node.Value
		return nil
	}
	type plain ChapterSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("catalog: chapter entry: %w", err)
	}
	*c = ChapterSpec(p)
	return nil
}

// ProbeSpec configures the numbered-filename probing strategy. Each pattern
// is a printf format receiving the chapter number.
type ProbeSpec struct {
	MaxChapters int      `yaml:"max_chapters"`
	Patterns    []string `yaml:"patterns"`
}

// DefaultManifest returns the conventional layout: output/<group>/index.md.
func DefaultManifest() Manifest {
	return Manifest{
		ContentDir:    "output",
		IndexFile:     "index.md",
		OverviewTitle: "Overview",
		Strategy:      StrategyManifest,
		Concurrency:   8,
		Probe: ProbeSpec{
			MaxChapters: 20,
			Patterns:    []string{"%02d.md", "%d.md", "chapter%02d.md", "chapter_%d.md"},
		},
	}
}
