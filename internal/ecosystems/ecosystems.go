// Package ecosystems declares the fixed processor topology for each
// supported language and binds the adapter bodies into it. Seeds select a
// topology through their language field; they never define processors.
package ecosystems

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/seedbloom/internal/adapters/doc"
	"git.home.luguber.info/inful/seedbloom/internal/adapters/github"
	"git.home.luguber.info/inful/seedbloom/internal/adapters/registry"
	"git.home.luguber.info/inful/seedbloom/internal/adapters/stats"
	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/hashutil"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
	"git.home.luguber.info/inful/seedbloom/internal/report"
	"git.home.luguber.info/inful/seedbloom/internal/retry"
	"git.home.luguber.info/inful/seedbloom/internal/seed"
	"git.home.luguber.info/inful/seedbloom/internal/urlcheck"
)

// PackageFile is the registry metadata document emitted by fetch-package
// and consumed by fetch-source for the repository cross-check.
const PackageFile = "package.json"

// fetchSource is replaceable in tests so topologies can run without a
// remote host.
var fetchSource = github.Fetch

// pipelineOrder drives the report's row order.
var pipelineOrder = []processor.Name{
	processor.FetchPackage,
	processor.FetchSource,
	processor.Stats,
	processor.DocExtract,
	processor.DocRender,
}

// Languages returns the supported language tags, sorted.
func Languages() []string {
	langs := []string{"rust", "python"}
	sort.Strings(langs)
	return langs
}

// Build compiles the topology for the seed's language into a validated
// graph. Unknown languages are a validation error.
func Build(s *seed.Seed) (*graph.Graph, error) {
	var client registry.Client
	switch s.Language {
	case "rust":
		client = registry.NewCratesClient()
	case "python":
		client = registry.NewPyPIClient()
	default:
		return nil, bloomerrors.ValidationError(
			fmt.Sprintf("unsupported language %q (supported: %v)", s.Language, Languages()))
	}
	return graph.New(buildSpecs(client, s))
}

// buildSpecs assembles the six-node topology with the given registry client
// bound into fetch-package.
func buildSpecs(client registry.Client, s *seed.Seed) []processor.Spec {
	return []processor.Spec{
		{
			Name:           processor.FetchPackage,
			Description:    "fetch registry metadata for the pinned package version",
			DefaultEnabled: true,
			DefaultPersist: true,
			Inputs: []string{
				"pname:" + s.PName,
				"version:" + s.Version,
				"hash:" + s.Hash,
			},
			Run: fetchPackageRun(client),
		},
		{
			Name:           processor.FetchSource,
			Description:    "clone the source repository at the pinned revision",
			Dependencies:   []processor.Name{processor.FetchPackage},
			DefaultEnabled: true,
			DefaultPersist: false,
			Inputs: []string{
				"url:" + s.GitHub.URL(),
				"rev:" + s.GitHub.Rev,
				"hash:" + s.GitHub.Hash,
			},
			Run: fetchSourceRun,
		},
		{
			Name:           processor.Stats,
			Description:    "compute source tree statistics",
			Dependencies:   []processor.Name{processor.FetchSource},
			DefaultEnabled: true,
			DefaultPersist: true,
			Run:            statsRun,
		},
		{
			Name:           processor.DocExtract,
			Description:    "extract a documentation outline from the source tree",
			Dependencies:   []processor.Name{processor.FetchSource},
			DefaultEnabled: true,
			DefaultPersist: true,
			Run:            docExtractRun,
		},
		{
			Name:           processor.DocRender,
			Description:    "render the documentation outline into markdown pages",
			Dependencies:   []processor.Name{processor.DocExtract},
			DefaultEnabled: true,
			DefaultPersist: true,
			Run:            docRenderRun,
		},
		{
			Name:           processor.Finalize,
			Description:    "aggregate build reports at the bloom root",
			Dependencies:   pipelineOrder,
			DefaultEnabled: true,
			DefaultPersist: true,
			Root:           true,
			Run:            report.Run(pipelineOrder),
		},
	}
}

func fetchPackageRun(client registry.Client) processor.RunFunc {
	return func(ctx context.Context, pc *processor.Context) error {
		var meta *registry.Metadata
		err := retry.Do(ctx, retry.DefaultPolicy(), func() error {
			var ferr error
			meta, ferr = client.Fetch(ctx, pc.Seed.PName, pc.Seed.Version)
			return ferr
		})
		if err != nil {
			return err
		}
		if err := verifyPin(pc.Seed.Hash, meta.Checksum, "registry hash", "registry checksum"); err != nil {
			return err
		}

		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal package metadata: %w", err)
		}
		data = append(data, '\n')
		if err := os.WriteFile(filepath.Join(pc.PublishDir(), PackageFile), data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", PackageFile, err)
		}
		pc.Logger.Info("registry metadata fetched",
			"repository", meta.Repository, "license", meta.License)
		return nil
	}
}

func fetchSourceRun(ctx context.Context, pc *processor.Context) error {
	declared := pc.Seed.GitHub.URL()

	meta, err := loadPackageMetadata(pc)
	if err != nil {
		return err
	}
	if !urlcheck.Matches(declared, meta.Repository) {
		return bloomerrors.ValidationError(fmt.Sprintf(
			"seed repository %s does not match registry repository %s",
			declared, meta.Repository))
	}

	res, err := fetchSource(ctx, declared, pc.Seed.GitHub.Rev, pc.PublishDir())
	if err != nil {
		return err
	}
	if err := verifyPin(pc.Seed.GitHub.Hash, res.TreeHash, "source hash", "fetched tree hash"); err != nil {
		return err
	}
	pc.Logger.Info("source fetched", "commit", res.Commit, "tree", res.TreeHash)
	return nil
}

// verifyPin compares a seed's pinned digest against the digest an adapter
// observed. Only hex pins are comparable; SRI-style pins (and registries
// that serve no checksum) participate in the cache key instead of being
// verified here.
func verifyPin(pin, observed, pinLabel, observedLabel string) error {
	p := trimDigestPrefix(pin)
	o := trimDigestPrefix(observed)
	if !hashutil.IsHex(p) || !hashutil.IsHex(o) {
		return nil
	}
	if !strings.EqualFold(p, o) {
		return bloomerrors.ValidationError(fmt.Sprintf(
			"pinned %s %s does not match %s %s", pinLabel, pin, observedLabel, observed))
	}
	return nil
}

func trimDigestPrefix(s string) string {
	s = strings.TrimPrefix(s, "sha256-")
	s = strings.TrimPrefix(s, "sha256:")
	return s
}

func loadPackageMetadata(pc *processor.Context) (*registry.Metadata, error) {
	dep, ok := pc.Dep(processor.FetchPackage)
	if !ok {
		return nil, bloomerrors.New(bloomerrors.CategoryInternal, bloomerrors.SeverityError,
			"fetch-package result missing")
	}
	data, err := os.ReadFile(filepath.Join(dep.PublishDir, PackageFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", PackageFile, err)
	}
	var meta registry.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PackageFile, err)
	}
	return &meta, nil
}

func statsRun(_ context.Context, pc *processor.Context) error {
	src, ok := pc.Dep(processor.FetchSource)
	if !ok {
		return bloomerrors.New(bloomerrors.CategoryInternal, bloomerrors.SeverityError,
			"fetch-source result missing")
	}
	ts, err := stats.Collect(src.PublishDir)
	if err != nil {
		return fmt.Errorf("collect statistics: %w", err)
	}
	return ts.WriteJSON(filepath.Join(pc.PublishDir(), "stats.json"))
}

func docExtractRun(_ context.Context, pc *processor.Context) error {
	src, ok := pc.Dep(processor.FetchSource)
	if !ok {
		return bloomerrors.New(bloomerrors.CategoryInternal, bloomerrors.SeverityError,
			"fetch-source result missing")
	}
	outline, err := doc.Extract(src.PublishDir)
	if err != nil {
		return fmt.Errorf("extract documentation: %w", err)
	}
	return outline.WriteJSON(pc.PublishDir())
}

func docRenderRun(_ context.Context, pc *processor.Context) error {
	dep, ok := pc.Dep(processor.DocExtract)
	if !ok {
		return bloomerrors.New(bloomerrors.CategoryInternal, bloomerrors.SeverityError,
			"doc-extract result missing")
	}
	outline, err := doc.LoadOutline(dep.PublishDir)
	if err != nil {
		return fmt.Errorf("load documentation outline: %w", err)
	}
	return doc.Render(outline, pc.PublishDir())
}
