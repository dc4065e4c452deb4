package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
)

func buildFixture(t *testing.T) (*graph.Graph, map[processor.Name]processor.Result, map[processor.Name]processor.Config) {
	t.Helper()
	g, err := graph.New([]processor.Spec{
		{Name: "stats", DefaultEnabled: true},
		{Name: "docs", DefaultEnabled: true, Dependencies: []processor.Name{"stats"}},
		{Name: "finalize", DefaultEnabled: true, Root: true,
			Dependencies: []processor.Name{"stats", "docs"}},
	})
	require.NoError(t, err)

	mkResult := func(name processor.Name, files map[string]string) processor.Result {
		dir := t.TempDir()
		for rel, content := range files {
			path := filepath.Join(dir, rel)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		}
		return processor.Result{Name: name, PublishDir: dir}
	}

	results := map[processor.Name]processor.Result{
		"stats":    mkResult("stats", map[string]string{"stats.json": "{}"}),
		"docs":     mkResult("docs", map[string]string{"api/index.md": "# api"}),
		"finalize": mkResult("finalize", map[string]string{"bloom.json": "{}", "README.md": "# x"}),
	}
	cfgs := map[processor.Name]processor.Config{
		"stats":    {Enabled: true, Persist: true},
		"docs":     {Enabled: true, Persist: true},
		"finalize": {Enabled: true, Persist: true},
	}
	return g, results, cfgs
}

func TestPersistNamespacesNonRootNodes(t *testing.T) {
	g, results, cfgs := buildFixture(t)
	root := t.TempDir()

	require.NoError(t, Persist(g, results, cfgs, root))

	require.FileExists(t, filepath.Join(root, "stats", "stats.json"))
	require.FileExists(t, filepath.Join(root, "docs", "api", "index.md"))
	// Root node output lands directly at the bloom root.
	require.FileExists(t, filepath.Join(root, "bloom.json"))
	require.FileExists(t, filepath.Join(root, "README.md"))
	require.NoDirExists(t, filepath.Join(root, "finalize"))
}

func TestPersistSkipsUnpersistedNodes(t *testing.T) {
	g, results, cfgs := buildFixture(t)
	cfgs["stats"] = processor.Config{Enabled: true, Persist: false}
	root := t.TempDir()

	require.NoError(t, Persist(g, results, cfgs, root))
	require.NoDirExists(t, filepath.Join(root, "stats"))
	require.FileExists(t, filepath.Join(root, "docs", "api", "index.md"))
}

func TestPersistSkipsDisabledNodes(t *testing.T) {
	g, results, cfgs := buildFixture(t)
	cfgs["docs"] = processor.Config{Enabled: false, Persist: true}
	root := t.TempDir()

	require.NoError(t, Persist(g, results, cfgs, root))
	require.NoDirExists(t, filepath.Join(root, "docs"))
}

func TestPersistEmptyTreeCreatesNoFolder(t *testing.T) {
	g, results, cfgs := buildFixture(t)
	results["stats"] = processor.Result{Name: "stats", PublishDir: t.TempDir()}
	root := t.TempDir()

	require.NoError(t, Persist(g, results, cfgs, root))
	require.NoDirExists(t, filepath.Join(root, "stats"))
}

func TestPersistOverwritesExisting(t *testing.T) {
	g, results, cfgs := buildFixture(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "stats"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stats", "stats.json"), []byte("old"), 0o600))

	require.NoError(t, Persist(g, results, cfgs, root))

	data, err := os.ReadFile(filepath.Join(root, "stats", "stats.json"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))
}
