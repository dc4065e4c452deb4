package ecosystems

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seedbloom/internal/adapters/github"
	"git.home.luguber.info/inful/seedbloom/internal/adapters/registry"
	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/engine"
	"git.home.luguber.info/inful/seedbloom/internal/fsutil"
	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/hashutil"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
	"git.home.luguber.info/inful/seedbloom/internal/publish"
	"git.home.luguber.info/inful/seedbloom/internal/report"
	"git.home.luguber.info/inful/seedbloom/internal/seed"
)

type stubClient struct {
	meta *registry.Metadata
	err  error
}

func (c *stubClient) Fetch(_ context.Context, _, _ string) (*registry.Metadata, error) {
	return c.meta, c.err
}

func testSeed() *seed.Seed {
	return &seed.Seed{
		PName:    "serde",
		Version:  "1.0.200",
		Language: "rust",
		GitHub:   seed.GitHub{Owner: "serde-rs", Repo: "serde", Rev: "v1.0.200"},
	}
}

// stubSourceTree replaces the git fetch with a copy of a local fixture tree.
func stubSourceTree(t *testing.T, fixture string) {
	t.Helper()
	orig := fetchSource
	fetchSource = func(_ context.Context, _, _ string, dest string) (*github.FetchResult, error) {
		if err := fsutil.CopyTree(fixture, dest); err != nil {
			return nil, err
		}
		h, err := hashutil.HashTree(dest)
		if err != nil {
			return nil, err
		}
		return &github.FetchResult{Commit: "0123456789abcdef0123456789abcdef01234567", TreeHash: h}, nil
	}
	t.Cleanup(func() { fetchSource = orig })
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestBuildUnsupportedLanguage(t *testing.T) {
	s := testSeed()
	s.Language = "haskell"

	_, err := Build(s)
	require.Error(t, err)
	require.True(t, bloomerrors.IsCategory(err, bloomerrors.CategoryValidation))
	require.Contains(t, err.Error(), "haskell")
}

func TestBuildTopologyShape(t *testing.T) {
	for _, lang := range Languages() {
		s := testSeed()
		s.Language = lang

		g, err := Build(s)
		require.NoError(t, err, lang)
		require.Equal(t, 6, g.Len())
		require.Equal(t, processor.Finalize, g.Terminal())

		// fetch-source is scratch-only by default.
		fs, ok := g.Spec(processor.FetchSource)
		require.True(t, ok)
		require.False(t, fs.DefaultPersist)
		require.True(t, fs.DefaultEnabled)

		fin, ok := g.Spec(processor.Finalize)
		require.True(t, ok)
		require.True(t, fin.Root)
		require.Len(t, fin.Dependencies, 5)
	}
}

func TestSeedPinsEnterCacheInputs(t *testing.T) {
	s := testSeed()
	s.Hash = "sha256-registry"
	s.GitHub.Hash = "sha256-tree"

	g, err := Build(s)
	require.NoError(t, err)

	fp, _ := g.Spec(processor.FetchPackage)
	require.Contains(t, fp.Inputs, "hash:sha256-registry")
	require.Contains(t, fp.Inputs, "pname:serde")

	fs, _ := g.Spec(processor.FetchSource)
	require.Contains(t, fs.Inputs, "hash:sha256-tree")
	require.Contains(t, fs.Inputs, "rev:v1.0.200")
}

func TestPipelineEndToEnd(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "src/lib.rs", "pub fn hello() {}\n")
	writeFixture(t, fixture, "README.md", "# Serde\n\n## Install\n\n[docs](https://docs.rs/serde)\n")
	stubSourceTree(t, fixture)

	s := testSeed()
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		License:    "MIT",
		Repository: "https://github.com/serde-rs/serde",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	build, err := eng.Run(context.Background(), g, s)
	require.NoError(t, err)

	bloomRoot := filepath.Join(t.TempDir(), "serde")
	require.NoError(t, publish.Persist(g, build.Results, build.Configs, bloomRoot))

	// finalize publishes at the bloom root.
	data, err := os.ReadFile(filepath.Join(bloomRoot, report.MachineFile))
	require.NoError(t, err)
	var rep report.BloomReport
	require.NoError(t, json.Unmarshal(data, &rep))
	require.Equal(t, "serde", rep.PName)
	require.Len(t, rep.Processors, 5)
	require.True(t, rep.Processors["stats"].Active)
	require.True(t, rep.Processors["stats"].Published)
	require.False(t, rep.Processors["fetch-source"].Published)

	readme, err := os.ReadFile(filepath.Join(bloomRoot, report.HumanFile))
	require.NoError(t, err)
	require.Contains(t, string(readme), "# serde v1.0.200")

	// persisted processors land in namespaced folders.
	require.FileExists(t, filepath.Join(bloomRoot, "stats", "stats.json"))
	require.FileExists(t, filepath.Join(bloomRoot, "doc-extract", "doc.json"))
	require.FileExists(t, filepath.Join(bloomRoot, "doc-render", "index.md"))
	require.FileExists(t, filepath.Join(bloomRoot, "fetch-package", PackageFile))

	// fetch-source is persist=false and must not appear.
	require.NoDirExists(t, filepath.Join(bloomRoot, "fetch-source"))

	// extracted outline reflects the fixture.
	docData, err := os.ReadFile(filepath.Join(bloomRoot, "doc-extract", "doc.json"))
	require.NoError(t, err)
	require.Contains(t, string(docData), "Install")
}

func TestRepositoryMismatchFailsBuild(t *testing.T) {
	stubSourceTree(t, t.TempDir())

	s := testSeed()
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		Repository: "https://github.com/someone-else/serde",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.Error(t, err)
	require.True(t, bloomerrors.IsCategory(err, bloomerrors.CategoryOrchestrator))
	require.Contains(t, err.Error(), "fetch-source")
}

func TestEmptyDiscoveredRepositoryIsAccepted(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "main.py", "print('hi')\n")
	stubSourceTree(t, fixture)

	s := testSeed()
	s.Language = "python"
	client := &stubClient{meta: &registry.Metadata{Name: "serde", Version: "1.0.200"}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.NoError(t, err)
}

func TestRegistryChecksumMismatchFailsBuild(t *testing.T) {
	stubSourceTree(t, t.TempDir())

	s := testSeed()
	s.Hash = "sha256:deadbeef"
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		Repository: "https://github.com/serde-rs/serde",
		Checksum:   "cafebabe",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch-package")
	require.Contains(t, err.Error(), "sha256:deadbeef")
	require.Contains(t, err.Error(), "cafebabe")
}

func TestRegistryChecksumMatchIsCaseInsensitive(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "a.rs", "fn a() {}\n")
	stubSourceTree(t, fixture)

	s := testSeed()
	s.Hash = "DEADBEEF"
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		Repository: "https://github.com/serde-rs/serde",
		Checksum:   "deadbeef",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.NoError(t, err)
}

func TestNonComparablePinSkipsVerification(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "a.rs", "fn a() {}\n")
	stubSourceTree(t, fixture)

	// SRI-style pins cannot be compared against the hex digests adapters
	// observe; they only participate in the cache key.
	s := testSeed()
	s.Hash = "sha256-K5a7Fd0a9fC1nB2eX3mQ8rT6yU4wV0zJ1pL5sD7gH9k="
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		Repository: "https://github.com/serde-rs/serde",
		Checksum:   "deadbeef",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.NoError(t, err)
}

func TestSourceTreePinMismatchFailsBuild(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "a.rs", "fn a() {}\n")
	stubSourceTree(t, fixture)

	s := testSeed()
	s.GitHub.Hash = strings.Repeat("ab", 32)
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		Repository: "https://github.com/serde-rs/serde",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch-source")
	require.Contains(t, err.Error(), "fetched tree hash")
}

func TestSourceTreePinMatchPasses(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "a.rs", "fn a() {}\n")
	stubSourceTree(t, fixture)

	want, err := hashutil.HashTree(fixture)
	require.NoError(t, err)

	s := testSeed()
	s.GitHub.Hash = want
	client := &stubClient{meta: &registry.Metadata{
		Name:       "serde",
		Version:    "1.0.200",
		Repository: "https://github.com/serde-rs/serde",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	_, err = eng.Run(context.Background(), g, s)
	require.NoError(t, err)
}

func TestDisabledBranchStillReports(t *testing.T) {
	fixture := t.TempDir()
	writeFixture(t, fixture, "a.rs", "fn a() {}\n")
	stubSourceTree(t, fixture)

	s := testSeed()
	enabled := false
	s.Overrides = map[string]seed.Override{
		"doc-extract": {Enabled: &enabled},
	}
	client := &stubClient{meta: &registry.Metadata{
		Name: "serde", Version: "1.0.200",
		Repository: "https://github.com/serde-rs/serde",
	}}
	g, err := graph.New(buildSpecs(client, s))
	require.NoError(t, err)

	eng := engine.New(engine.WithWorkRoot(t.TempDir()))
	build, err := eng.Run(context.Background(), g, s)
	require.NoError(t, err)

	// doc-render is cascaded off with its dependency.
	require.True(t, build.Results[processor.DocExtract].Disabled)
	require.True(t, build.Results[processor.DocRender].Disabled)
	require.False(t, build.Results[processor.Stats].Disabled)

	bloomRoot := filepath.Join(t.TempDir(), "serde")
	require.NoError(t, publish.Persist(g, build.Results, build.Configs, bloomRoot))

	data, err := os.ReadFile(filepath.Join(bloomRoot, report.MachineFile))
	require.NoError(t, err)
	var rep report.BloomReport
	require.NoError(t, json.Unmarshal(data, &rep))
	require.False(t, rep.Processors["doc-extract"].Active)
	require.False(t, rep.Processors["doc-render"].Active)
	require.Nil(t, rep.Processors["doc-render"].BuildDuration)

	require.NoDirExists(t, filepath.Join(bloomRoot, "doc-extract"))
	require.NoDirExists(t, filepath.Join(bloomRoot, "doc-render"))
	require.FileExists(t, filepath.Join(bloomRoot, "stats", "stats.json"))
}
