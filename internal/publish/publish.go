// Package publish copies the designated outputs of a completed build into
// the stable, seed-adjacent bloom directory. Only nodes with persist=true
// are copied; each lands in a subfolder named after the node, except the
// root (finalize) node whose outputs sit directly at the bloom root.
package publish

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/fsutil"
	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
)

// Persist writes a successful build's publishable outputs under bloomRoot.
// Existing destination files are overwritten, not merged. A node with an
// empty publish tree produces no destination folder at all.
func Persist(g *graph.Graph, results map[processor.Name]processor.Result, cfgs map[processor.Name]processor.Config, bloomRoot string) error {
	names := make([]processor.Name, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		cfg := cfgs[name]
		if !cfg.Persist || !cfg.Enabled {
			continue
		}
		res := results[name]

		empty, err := fsutil.IsEmptyDir(res.PublishDir)
		if err != nil {
			return bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityFatal, "inspect publish tree").
				WithContext("processor", string(name))
		}
		if empty {
			slog.Debug("Nothing to publish", slog.String("processor", string(name)))
			continue
		}

		spec, _ := g.Spec(name)
		dest := filepath.Join(bloomRoot, string(name))
		if spec.Root {
			dest = bloomRoot
		}
		if err := os.MkdirAll(dest, 0o750); err != nil {
			return bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityFatal, "ensure bloom directory").
				WithContext("processor", string(name))
		}
		if err := fsutil.CopyTree(res.PublishDir, dest); err != nil {
			return bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityFatal, "publish processor output").
				WithContext("processor", string(name))
		}
		slog.Debug("Published processor output",
			slog.String("processor", string(name)),
			slog.String("dest", dest))
	}
	return nil
}
