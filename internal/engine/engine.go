// Package engine executes a processor graph to completion or first failure.
// Ready nodes are dispatched concurrently on a bounded worker pool; completed
// results are cached by a content-derived key so unchanged inputs never
// re-run a node.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/graph"
	"git.home.luguber.info/inful/seedbloom/internal/hashutil"
	"git.home.luguber.info/inful/seedbloom/internal/metrics"
	"git.home.luguber.info/inful/seedbloom/internal/observability"
	"git.home.luguber.info/inful/seedbloom/internal/overlay"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
	"git.home.luguber.info/inful/seedbloom/internal/seed"
	"git.home.luguber.info/inful/seedbloom/internal/store"
)

// DefaultWorkers is the worker limit used when none is configured.
const DefaultWorkers = 4

// Engine runs builds. Zero value is not usable; construct with New.
type Engine struct {
	workers  int
	store    store.Store
	recorder metrics.Recorder
	workRoot string
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the bounded worker pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithStore sets the result cache. Defaults to a per-engine memory store.
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithRecorder sets the metrics recorder. Defaults to a no-op.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithWorkRoot sets the scratch root for per-build publish directories.
// Defaults to the system temp directory.
func WithWorkRoot(dir string) Option {
	return func(e *Engine) { e.workRoot = dir }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		workers:  DefaultWorkers,
		store:    store.NewMemory(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.recorder.SetWorkers(e.workers)
	return e
}

// BuildResult is the completed outcome of one build: every node's immutable
// result plus the effective configuration the build ran under.
type BuildResult struct {
	Results map[processor.Name]processor.Result
	Configs map[processor.Name]processor.Config
	Start   time.Time
	End     time.Time
}

// Duration is the wall-clock time of the whole build.
func (r *BuildResult) Duration() time.Duration { return r.End.Sub(r.Start) }

type completion struct {
	name processor.Name
	res  processor.Result
	err  error
}

// Run executes the graph for one seed. On the first node failure no further
// nodes are dispatched; already-running nodes finish (their results stay in
// the cache for the next attempt) and the build fails with an orchestrator
// error naming the first failing node.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, s *seed.Seed) (*BuildResult, error) {
	cfgs, err := overlay.Effective(g, s.Overrides)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithBuildID(ctx, uuid.NewString())
	ctx = observability.WithSeed(ctx, s.PName)
	ctx = observability.WithLanguage(ctx, s.Language)

	workDir, err := os.MkdirTemp(e.workRoot, "bloom-"+s.PName+"-")
	if err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityFatal, "create build workspace")
	}

	build := &BuildResult{
		Results: make(map[processor.Name]processor.Result, g.Len()),
		Configs: cfgs,
		Start:   time.Now(),
	}

	observability.InfoContext(ctx, "Starting build",
		slog.Int("processors", g.Len()),
		slog.Int("workers", e.workers))

	pending := make(map[processor.Name]int, g.Len())
	var ready []processor.Name
	for _, name := range g.Order() {
		spec, _ := g.Spec(name)
		pending[name] = len(spec.Dependencies)
		if pending[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	done := make(chan completion)
	sem := make(chan struct{}, e.workers)
	completed := 0
	inFlight := 0
	var firstErr error
	var firstFailed processor.Name

	promote := func(name processor.Name) {
		for _, dep := range g.Dependents(name) {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	}

	for completed < g.Len() {
		// Dispatch everything ready, unless a failure already stopped the
		// build. Disabled nodes short-circuit on this goroutine without
		// consuming a worker slot.
		for firstErr == nil && len(ready) > 0 {
			name := ready[0]
			ready = ready[1:]

			if !cfgs[name].Enabled {
				res, perr := e.placeholderResult(name, workDir)
				if perr != nil {
					firstErr = perr
					firstFailed = name
					break
				}
				build.Results[name] = res
				e.recorder.IncProcessorResult(string(name), metrics.ResultDisabled)
				completed++
				promote(name)
				continue
			}

			spec, _ := g.Spec(name)
			// Snapshot dependency results on this goroutine; workers never
			// touch the shared results map.
			deps := make(map[processor.Name]processor.Result, len(spec.Dependencies))
			depCfgs := make(map[processor.Name]processor.Config, len(spec.Dependencies))
			for _, dep := range spec.Dependencies {
				deps[dep] = build.Results[dep]
				depCfgs[dep] = cfgs[dep]
			}
			inFlight++
			go func(spec processor.Spec) {
				sem <- struct{}{}
				defer func() { <-sem }()
				done <- e.runNode(ctx, spec, cfgs[spec.Name], deps, depCfgs, s, workDir)
			}(spec)
		}

		if inFlight == 0 {
			break
		}

		c := <-done
		inFlight--
		completed++
		if c.err != nil {
			if firstErr == nil {
				firstErr = c.err
				firstFailed = c.name
			} else {
				observability.WarnContext(ctx, "Additional processor failure after abort",
					slog.String("processor", string(c.name)),
					slog.String("error", c.err.Error()))
			}
			e.recorder.IncProcessorResult(string(c.name), metrics.ResultFailed)
			continue
		}
		build.Results[c.name] = c.res
		if c.res.Cached {
			e.recorder.IncProcessorResult(string(c.name), metrics.ResultCached)
		} else {
			e.recorder.IncProcessorResult(string(c.name), metrics.ResultSuccess)
		}
		promote(c.name)
	}

	build.End = time.Now()
	e.recorder.ObserveBuildDuration(build.Duration())

	if firstErr != nil {
		e.recorder.IncBuildOutcome("failed")
		observability.ErrorContext(ctx, "Build failed",
			slog.String("processor", string(firstFailed)),
			slog.String("error", firstErr.Error()))
		if bloomerrors.IsCategory(firstErr, bloomerrors.CategoryOrchestrator) {
			return build, firstErr
		}
		return build, bloomerrors.OrchestratorError(string(firstFailed), firstErr).
			WithContext("buildId", observability.GetContext(ctx).BuildID)
	}

	e.recorder.IncBuildOutcome("success")
	observability.InfoContext(ctx, "Build completed",
		slog.String("duration", build.Duration().String()))
	return build, nil
}

// runNode executes one enabled node: cache lookup first, then the processor
// body with its publish scratch directory and dependency results.
func (e *Engine) runNode(ctx context.Context, spec processor.Spec, cfg processor.Config, deps map[processor.Name]processor.Result, depCfgs map[processor.Name]processor.Config, s *seed.Seed, workDir string) completion {
	name := spec.Name
	ctx = observability.WithProcessor(ctx, string(name))

	key := cacheKey(spec, cfg, deps)

	// The terminal root node is never cached: its reports must reflect the
	// current persist flags and build timestamp.
	if !spec.Root {
		if entry, ok, err := e.store.Get(ctx, key); err != nil {
			observability.WarnContext(ctx, "Result store lookup failed",
				slog.String("error", err.Error()))
		} else if ok {
			e.recorder.IncCacheHit()
			observability.DebugContext(ctx, "Processor satisfied from cache",
				slog.String("identity", hashutil.ShortHash(entry.Identity)))
			return completion{name: name, res: processor.Result{
				Name:       name,
				Identity:   entry.Identity,
				PublishDir: entry.PublishDir,
				Timing:     processor.Timing{Duration: entry.Duration},
				Cached:     true,
			}}
		}
		e.recorder.IncCacheMiss()
	}

	publishDir := filepath.Join(workDir, string(name))
	if err := os.MkdirAll(publishDir, 0o750); err != nil {
		return completion{name: name, err: fmt.Errorf("create publish dir: %w", err)}
	}

	pc := processor.NewContext(s, cfg, observability.Logger(ctx), publishDir, deps, depCfgs)

	observability.DebugContext(ctx, "Processor starting")
	start := time.Now()
	runErr := spec.Run(ctx, pc)
	end := time.Now()
	timing := processor.Timing{Start: start, End: end, Duration: end.Sub(start)}
	e.recorder.ObserveProcessorDuration(string(name), timing.Duration)

	if runErr != nil {
		return completion{name: name, err: runErr}
	}

	identity, err := hashutil.HashTree(publishDir)
	if err != nil {
		return completion{name: name, err: fmt.Errorf("hash publish tree: %w", err)}
	}

	res := processor.Result{
		Name:       name,
		Identity:   identity,
		PublishDir: publishDir,
		Timing:     timing,
	}

	if !spec.Root {
		if err := e.store.Put(ctx, key, res); err != nil {
			observability.WarnContext(ctx, "Result store write failed",
				slog.String("error", err.Error()))
		}
	}

	observability.InfoContext(ctx, "Processor completed",
		slog.String("duration", timing.Duration.String()),
		slog.String("identity", hashutil.ShortHash(identity)))
	return completion{name: name, res: res}
}

// placeholderResult is the short-circuit result for a disabled node: an
// empty publish tree and a zero timing record.
func (e *Engine) placeholderResult(name processor.Name, workDir string) (processor.Result, error) {
	publishDir := filepath.Join(workDir, string(name))
	if err := os.MkdirAll(publishDir, 0o750); err != nil {
		return processor.Result{}, fmt.Errorf("create placeholder dir: %w", err)
	}
	identity, err := hashutil.HashTree(publishDir)
	if err != nil {
		return processor.Result{}, err
	}
	return processor.Result{
		Name:       name,
		Identity:   identity,
		PublishDir: publishDir,
		Disabled:   true,
	}, nil
}

// cacheKey derives a node's content-addressed cache key from its name, its
// effective configuration, its declared external inputs and the identities
// of its dependencies' results.
func cacheKey(spec processor.Spec, cfg processor.Config, deps map[processor.Name]processor.Result) string {
	parts := []string{
		"node:" + string(spec.Name),
		fmt.Sprintf("enabled:%t", cfg.Enabled),
		fmt.Sprintf("persist:%t", cfg.Persist),
	}
	for _, input := range spec.Inputs {
		parts = append(parts, "input:"+input)
	}
	names := make([]processor.Name, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("dep:%s=%s", n, deps[n].Identity))
	}
	return hashutil.Sum(parts...)
}
