// Package stats computes source tree statistics for the stats processor.
package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExtensionStats aggregates counts for one file extension.
type ExtensionStats struct {
	Files int   `json:"files"`
	Lines int   `json:"lines"`
	Bytes int64 `json:"bytes"`
}

// TreeStats is the full statistics document emitted as stats.json.
type TreeStats struct {
	TotalFiles int                       `json:"totalFiles"`
	TotalLines int                       `json:"totalLines"`
	TotalBytes int64                     `json:"totalBytes"`
	Extensions map[string]ExtensionStats `json:"extensions"`
}

// Collect walks a source tree and aggregates per-extension statistics.
// Extension keys are lowercase without the leading dot; files without an
// extension group under "(none)".
func Collect(root string) (*TreeStats, error) {
	ts := &TreeStats{Extensions: make(map[string]ExtensionStats)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if ext == "" {
			ext = "(none)"
		}
		lines := countLines(content)

		es := ts.Extensions[ext]
		es.Files++
		es.Lines += lines
		es.Bytes += int64(len(content))
		ts.Extensions[ext] = es

		ts.TotalFiles++
		ts.TotalLines += lines
		ts.TotalBytes += int64(len(content))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// WriteJSON writes the statistics document, including the extension ranking,
// with stable key order.
func (ts *TreeStats) WriteJSON(path string) error {
	doc := struct {
		*TreeStats
		TopExtensions []string `json:"topExtensions"`
	}{ts, ts.TopExtensions()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// TopExtensions returns extension keys ordered by descending file count,
// ties broken alphabetically.
func (ts *TreeStats) TopExtensions() []string {
	keys := make([]string, 0, len(ts.Extensions))
	for k := range ts.Extensions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := ts.Extensions[keys[i]], ts.Extensions[keys[j]]
		if a.Files != b.Files {
			return a.Files > b.Files
		}
		return keys[i] < keys[j]
	})
	return keys
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
