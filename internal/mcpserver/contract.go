package mcpserver

// LayoutContract describes the content tree the browser discovers.
const LayoutContract = `# Tutorial Content Layout

The browser reads a tree of Markdown files. Nothing is built or indexed ahead
of time; groups and chapters are found by probing for files.

## Structure

` + "```" + `text
<content_dir>/                # "output" by default
  <group dir>/
    index.md                  # REQUIRED: the group overview
    01_getting_started_.md    # chapters, number first
    02_routing_.md
` + "```" + `

## Rules

1. A group is shown only when its ` + "`" + `index.md` + "`" + ` can be read.
2. Candidate groups and chapters come from the ` + "`" + `catalog` + "`" + ` section of the
   configuration (manifest strategy) or from numbered filename patterns such as
   ` + "`" + `01.md` + "`" + ` (probe strategy).
3. Chapter ids are ` + "`" + `<group>-index` + "`" + ` for the overview and ` + "`" + `<group>-<n>` + "`" + `
   where n is the number at the start of the filename.
4. Chapter titles default to the filename with underscores turned into spaces
   (` + "`" + `03_bar_.md` + "`" + ` becomes "03 Bar").
5. Relative links ending in ` + "`" + `.md` + "`" + ` open inside the viewer; absolute URLs do not.
6. Fenced blocks tagged ` + "`" + `mermaid` + "`" + ` are drawn as diagrams.
7. A leading YAML frontmatter block is hidden; its ` + "`" + `title` + "`" + ` is used when present.
`
