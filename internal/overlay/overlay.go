// Package overlay merges seed-level processor overrides onto ecosystem
// defaults and applies the cascade rule: a disabled upstream processor
// disables every transitive dependent, regardless of the dependent's own
// override.
package overlay

import (
	"fmt"
	"sort"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
	"git.home.luguber.info/inful/seedbloom/internal/seed"
)

// Effective computes the complete per-processor configuration for one build.
// Unknown override keys are a configuration error and fail the build before
// any node runs.
func Effective(g *graph.Graph, overrides map[string]seed.Override) (map[processor.Name]processor.Config, error) {
	if err := rejectUnknown(g, overrides); err != nil {
		return nil, err
	}

	cfgs := make(map[processor.Name]processor.Config, g.Len())
	for _, name := range g.Order() {
		spec, _ := g.Spec(name)
		cfg := processor.Config{Enabled: spec.DefaultEnabled, Persist: spec.DefaultPersist}
		if ov, ok := overrides[string(name)]; ok {
			if ov.Enabled != nil {
				cfg.Enabled = *ov.Enabled
			}
			if ov.Persist != nil {
				cfg.Persist = *ov.Persist
			}
		}
		cfgs[name] = cfg
	}

	// Cascade pass in topological order. The override is intentionally
	// ignored here: an enabled=true override cannot resurrect a node whose
	// upstream is disabled. The terminal root node is exempt — it depends on
	// every other node for ordering, not for data, and the reports it emits
	// must exist even when everything upstream is disabled.
	for _, name := range g.Order() {
		spec, _ := g.Spec(name)
		if spec.Root {
			continue
		}
		cfg := cfgs[name]
		for _, dep := range spec.Dependencies {
			if !cfgs[dep].Enabled {
				cfg.Enabled = false
				break
			}
		}
		cfgs[name] = cfg
	}

	return cfgs, nil
}

func rejectUnknown(g *graph.Graph, overrides map[string]seed.Override) error {
	var unknown []string
	for key := range overrides {
		if _, ok := g.Spec(processor.Name(key)); !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return bloomerrors.ConfigError(fmt.Sprintf("unknown processor override %v", unknown)).
		WithContext("overrides", unknown)
}
