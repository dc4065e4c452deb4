package doc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IndexFile is the entry page produced by the render step.
const IndexFile = "index.md"

// Render writes the outline as a set of markdown pages under dir: one index
// page linking every document, plus one page per document mirroring its
// heading structure.
func Render(o *Outline, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	var index strings.Builder
	index.WriteString("# Documentation\n\n")
	if len(o.Documents) == 0 {
		index.WriteString("No markdown documents found.\n")
	}
	for _, d := range o.Documents {
		page := pageName(d.Path)
		fmt.Fprintf(&index, "- [%s](./%s)\n", d.Path, page)
		if err := renderDocument(d, filepath.Join(dir, page)); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(dir, IndexFile), []byte(index.String()), 0o600)
}

func renderDocument(d Document, path string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Path)

	if len(d.Headings) > 0 {
		sb.WriteString("## Outline\n\n")
		for _, h := range d.Headings {
			indent := strings.Repeat("  ", h.Level-1)
			fmt.Fprintf(&sb, "%s- %s\n", indent, h.Text)
		}
		sb.WriteString("\n")
	}

	if len(d.Links) > 0 {
		sb.WriteString("## Links\n\n")
		for _, l := range d.Links {
			fmt.Fprintf(&sb, "- %s: %s\n", l.Kind, l.Destination)
		}
	}
	return os.WriteFile(path, []byte(sb.String()), 0o600)
}

// pageName maps a document path to a flat page filename, e.g.
// "docs/guide.md" becomes "docs__guide.md".
func pageName(rel string) string {
	name := strings.ReplaceAll(rel, "/", "__")
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".md"
}
