// Package doc extracts a documentation outline from a source tree and
// renders it back into browsable markdown pages.
package doc

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// OutlineFile is the machine-readable document produced by the extract step.
const OutlineFile = "doc.json"

type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
	LinkKindAuto   LinkKind = "auto"
)

// Heading is one markdown heading with its nesting level.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is a link-like construct found in a markdown document.
type Link struct {
	Kind        LinkKind `json:"kind"`
	Destination string   `json:"destination"`
}

// Document is the outline of a single markdown file.
type Document struct {
	Path     string    `json:"path"`
	Headings []Heading `json:"headings,omitempty"`
	Links    []Link    `json:"links,omitempty"`
}

// Outline is the full documentation outline of a source tree.
type Outline struct {
	Documents []Document `json:"documents"`
}

// Extract walks a source tree, parses every markdown file, and returns the
// collected outline. Document order is stable (sorted by relative path).
func Extract(root string) (*Outline, error) {
	out := &Outline{Documents: make([]Document, 0)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		doc := parseDocument(filepath.ToSlash(rel), body)
		out.Documents = append(out.Documents, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out.Documents, func(i, j int) bool {
		return out.Documents[i].Path < out.Documents[j].Path
	})
	return out, nil
}

func parseDocument(rel string, body []byte) Document {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	doc := Document{Path: rel}
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			doc.Headings = append(doc.Headings, Heading{
				Level: node.Level,
				Text:  headingText(node, body),
			})
		case *gmast.AutoLink:
			doc.Links = append(doc.Links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			doc.Links = append(doc.Links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			doc.Links = append(doc.Links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})
	return doc
}

// headingText collects the literal text of a heading's inline children.
func headingText(h *gmast.Heading, source []byte) string {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *gmast.Text:
			sb.Write(node.Segment.Value(source))
		case *gmast.CodeSpan:
			for gc := node.FirstChild(); gc != nil; gc = gc.NextSibling() {
				if t, ok := gc.(*gmast.Text); ok {
					sb.Write(t.Segment.Value(source))
				}
			}
		default:
			if t, ok := node.(interface {
				Text(source []byte) []byte
			}); ok {
				sb.Write(t.Text(source))
			}
		}
	}
	return sb.String()
}

// WriteJSON writes the outline as doc.json under dir.
func (o *Outline) WriteJSON(dir string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, OutlineFile), append(data, '\n'), 0o600)
}

// LoadOutline reads a doc.json produced by a previous extract step.
func LoadOutline(dir string) (*Outline, error) {
	data, err := os.ReadFile(filepath.Join(dir, OutlineFile))
	if err != nil {
		return nil, err
	}
	var out Outline
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
