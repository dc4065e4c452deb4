package overlay

import (
	"testing"

	"github.com/stretchr/testify/require"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
	"git.home.luguber.info/inful/seedbloom/internal/seed"
)

func boolPtr(b bool) *bool { return &b }

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New([]processor.Spec{
		{Name: processor.FetchPackage, DefaultEnabled: true, DefaultPersist: true},
		{Name: processor.FetchSource, DefaultEnabled: true, DefaultPersist: false,
			Dependencies: []processor.Name{processor.FetchPackage}},
		{Name: processor.Stats, DefaultEnabled: true, DefaultPersist: true,
			Dependencies: []processor.Name{processor.FetchSource}},
		{Name: processor.DocExtract, DefaultEnabled: true, DefaultPersist: true,
			Dependencies: []processor.Name{processor.FetchSource}},
		{Name: processor.DocRender, DefaultEnabled: true, DefaultPersist: true,
			Dependencies: []processor.Name{processor.DocExtract}},
		{Name: processor.Finalize, DefaultEnabled: true, DefaultPersist: true, Root: true,
			Dependencies: []processor.Name{
				processor.FetchPackage, processor.FetchSource, processor.Stats,
				processor.DocExtract, processor.DocRender,
			}},
	})
	require.NoError(t, err)
	return g
}

func TestEffectiveDefaultsWithoutOverrides(t *testing.T) {
	cfgs, err := Effective(testGraph(t), nil)
	require.NoError(t, err)

	require.Len(t, cfgs, 6)
	require.Equal(t, processor.Config{Enabled: true, Persist: true}, cfgs[processor.FetchPackage])
	require.Equal(t, processor.Config{Enabled: true, Persist: false}, cfgs[processor.FetchSource])
}

func TestEffectivePartialOverrideInheritsOtherField(t *testing.T) {
	cfgs, err := Effective(testGraph(t), map[string]seed.Override{
		"stats": {Persist: boolPtr(false)},
	})
	require.NoError(t, err)

	// enabled inherited from the default, persist overridden
	require.Equal(t, processor.Config{Enabled: true, Persist: false}, cfgs[processor.Stats])
}

func TestCascadeDisablesTransitiveDependents(t *testing.T) {
	cfgs, err := Effective(testGraph(t), map[string]seed.Override{
		"fetch-source": {Enabled: boolPtr(false)},
	})
	require.NoError(t, err)

	require.True(t, cfgs[processor.FetchPackage].Enabled)
	require.False(t, cfgs[processor.FetchSource].Enabled)
	require.False(t, cfgs[processor.Stats].Enabled)
	require.False(t, cfgs[processor.DocExtract].Enabled)
	require.False(t, cfgs[processor.DocRender].Enabled)
}

func TestCascadeBeatsDependentOverride(t *testing.T) {
	cfgs, err := Effective(testGraph(t), map[string]seed.Override{
		"doc-extract": {Enabled: boolPtr(false)},
		"doc-render":  {Enabled: boolPtr(true)},
	})
	require.NoError(t, err)

	// doc-render's own override is ignored when its upstream is disabled.
	require.False(t, cfgs[processor.DocRender].Enabled)
}

func TestFinalizeSurvivesUpstreamDisable(t *testing.T) {
	cfgs, err := Effective(testGraph(t), map[string]seed.Override{
		"fetch-package": {Enabled: boolPtr(false)},
	})
	require.NoError(t, err)

	for _, name := range []processor.Name{
		processor.FetchPackage, processor.FetchSource, processor.Stats,
		processor.DocExtract, processor.DocRender,
	} {
		require.False(t, cfgs[name].Enabled, "%s", name)
	}
	require.True(t, cfgs[processor.Finalize].Enabled)
}

func TestUnknownOverrideKeyIsConfigError(t *testing.T) {
	_, err := Effective(testGraph(t), map[string]seed.Override{
		"does-not-exist": {Enabled: boolPtr(false)},
	})
	require.Error(t, err)
	require.True(t, bloomerrors.IsCategory(err, bloomerrors.CategoryConfig))
	require.Contains(t, err.Error(), "does-not-exist")
}

func TestDisabledNodeKeepsPersistFlag(t *testing.T) {
	cfgs, err := Effective(testGraph(t), map[string]seed.Override{
		"fetch-source": {Enabled: boolPtr(false)},
	})
	require.NoError(t, err)

	// persist survives the cascade; it simply has nothing to publish.
	require.True(t, cfgs[processor.Stats].Persist)
	require.False(t, cfgs[processor.Stats].Enabled)
}
