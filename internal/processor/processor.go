// Package processor defines the uniform contract every pipeline step
// satisfies: a static Spec wired into the build graph, an effective Config,
// and an immutable Result owned by the orchestrator's cache.
package processor

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/seedbloom/internal/seed"
)

// Name is a strongly-typed identifier for a processor. All canonical
// processors are declared as constants here for compile-time safety.
type Name string

// Canonical processor names shared by every ecosystem topology.
const (
	FetchPackage Name = "fetch-package"
	FetchSource  Name = "fetch-source"
	Stats        Name = "stats"
	DocExtract   Name = "doc-extract"
	DocRender    Name = "doc-render"
	Finalize     Name = "finalize"
)

// RunFunc is a processor body. It writes whatever it wants published into
// pc.PublishDir() and may read completed dependency results through pc.Dep.
type RunFunc func(ctx context.Context, pc *Context) error

// Spec is the static description of a processor, compiled into a graph node.
// One fixed set exists per ecosystem; seeds never define specs.
type Spec struct {
	Name           Name
	Description    string
	Dependencies   []Name
	DefaultEnabled bool
	DefaultPersist bool

	// Root marks the terminal node whose publish tree lands at the bloom
	// root instead of a namespaced subfolder.
	Root bool

	// Inputs are the node's declared external inputs (pinned content
	// hashes, registry coordinates). They participate in the cache key so
	// a changed pin re-runs the node.
	Inputs []string

	Run RunFunc
}

// Config is the effective enabled/persist state for one processor after
// overlaying seed overrides onto ecosystem defaults.
type Config struct {
	Enabled bool
	Persist bool
}

// Timing records when a processor body ran. Disabled and placeholder
// results carry a zero Timing.
type Timing struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Millis returns the duration in whole milliseconds.
func (t Timing) Millis() int64 { return t.Duration.Milliseconds() }

// Result is the immutable outcome of one processor for one build. The
// orchestrator owns it; nothing mutates it after creation.
type Result struct {
	Name       Name
	Identity   string // opaque content hash of the publish tree
	PublishDir string // empty placeholder tree when the node was disabled
	Timing     Timing
	Cached     bool // satisfied from the result store without running
	Disabled   bool
}

// Context is what a Run body sees: the seed, its own publish scratch
// directory, and read access to its declared dependencies' results. Nodes
// never see siblings or global state.
type Context struct {
	Seed   *seed.Seed
	Config Config
	Logger *slog.Logger

	publishDir string
	deps       map[Name]Result
	depConfigs map[Name]Config
}

// NewContext assembles a run context. deps must contain exactly the
// completed results of the spec's declared dependencies.
func NewContext(s *seed.Seed, cfg Config, logger *slog.Logger, publishDir string, deps map[Name]Result, depConfigs map[Name]Config) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Seed:       s,
		Config:     cfg,
		Logger:     logger,
		publishDir: publishDir,
		deps:       deps,
		depConfigs: depConfigs,
	}
}

// PublishDir is the node's designated output directory for this build.
func (c *Context) PublishDir() string { return c.publishDir }

// Dep returns a declared dependency's completed result.
func (c *Context) Dep(name Name) (Result, bool) {
	r, ok := c.deps[name]
	return r, ok
}

// DepConfig returns a declared dependency's effective configuration.
func (c *Context) DepConfig(name Name) (Config, bool) {
	cfg, ok := c.depConfigs[name]
	return cfg, ok
}

// Deps returns the names of all dependency results available to this node.
func (c *Context) Deps() []Name {
	names := make([]Name, 0, len(c.deps))
	for n := range c.deps {
		names = append(names, n)
	}
	return names
}
