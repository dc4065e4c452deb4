package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/seedbloom/internal/ecosystems"
	"git.home.luguber.info/inful/seedbloom/internal/engine"
	"git.home.luguber.info/inful/seedbloom/internal/metrics"
	"git.home.luguber.info/inful/seedbloom/internal/publish"
	"git.home.luguber.info/inful/seedbloom/internal/seed"
	"git.home.luguber.info/inful/seedbloom/internal/store"
)

var CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging"`

	Build struct {
		Seed          string `arg:"" help:"Seed file to build"`
		Output        string `short:"o" help:"Bloom output directory (default: next to the seed file)"`
		Workers       int    `short:"w" help:"Concurrent processor limit" default:"4"`
		CacheDir      string `help:"Persistent result cache directory (default: in-memory cache)"`
		NoCache       bool   `help:"Run every processor even when a cached result exists"`
		MetricsListen string `help:"Expose Prometheus metrics on this address (e.g. :9090)"`
	} `cmd:"" help:"Build a bloom from a seed file"`

	Graph struct {
		Seed string `arg:"" help:"Seed file to inspect"`
	} `cmd:"" help:"Print the processor topology for a seed"`

	Watch struct {
		Seed     string `arg:"" help:"Seed file to watch"`
		Output   string `short:"o" help:"Bloom output directory (default: next to the seed file)"`
		Workers  int    `short:"w" help:"Concurrent processor limit" default:"4"`
		CacheDir string `help:"Persistent result cache directory (default: in-memory cache)"`
	} `cmd:"" help:"Rebuild the bloom whenever the seed file changes"`
}

func main() {
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "build <seed>":
		if err := runBuild(CLI.Build.Seed, CLI.Build.Output, CLI.Build.Workers,
			CLI.Build.CacheDir, CLI.Build.NoCache, CLI.Build.MetricsListen); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "graph <seed>":
		if err := runGraph(CLI.Graph.Seed); err != nil {
			slog.Error("Graph failed", "error", err)
			os.Exit(1)
		}
	case "watch <seed>":
		if err := runWatch(CLI.Watch.Seed, CLI.Watch.Output, CLI.Watch.Workers, CLI.Watch.CacheDir); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	}
}

func runBuild(seedPath, output string, workers int, cacheDir string, noCache bool, metricsListen string) error {
	recorder, cleanup, err := setupMetrics(metricsListen)
	if err != nil {
		return err
	}
	defer cleanup()

	resultStore, err := setupStore(cacheDir, noCache)
	if err != nil {
		return err
	}
	defer func() {
		if err := resultStore.Close(); err != nil {
			slog.Warn("Failed to close result store", "error", err)
		}
	}()

	return buildOnce(seedPath, output, workers, resultStore, recorder)
}

func buildOnce(seedPath, output string, workers int, resultStore store.Store, recorder metrics.Recorder) error {
	s, err := seed.Load(seedPath)
	if err != nil {
		return err
	}

	g, err := ecosystems.Build(s)
	if err != nil {
		return err
	}

	bloomRoot := output
	if bloomRoot == "" {
		bloomRoot = s.BloomRoot()
	}

	slog.Info("Starting bloom build",
		"seed", s.PName,
		"version", s.Version,
		"language", s.Language,
		"output", bloomRoot,
		"workers", workers)

	eng := engine.New(
		engine.WithWorkers(workers),
		engine.WithStore(resultStore),
		engine.WithRecorder(recorder),
	)

	build, err := eng.Run(context.Background(), g, s)
	if err != nil {
		return err
	}

	if err := publish.Persist(g, build.Results, build.Configs, bloomRoot); err != nil {
		return err
	}

	slog.Info("Bloom build completed",
		"output", bloomRoot,
		"duration", build.Duration().Round(time.Millisecond).String(),
		"processors", len(build.Results))
	return nil
}

func runGraph(seedPath string) error {
	s, err := seed.Load(seedPath)
	if err != nil {
		return err
	}
	g, err := ecosystems.Build(s)
	if err != nil {
		return err
	}

	fmt.Printf("%s v%s (%s)\n", s.PName, s.Version, s.Language)
	for _, name := range g.Order() {
		spec, _ := g.Spec(name)
		marker := " "
		if spec.Root {
			marker = "*"
		}
		if len(spec.Dependencies) == 0 {
			fmt.Printf("%s %-15s %s\n", marker, name, spec.Description)
			continue
		}
		fmt.Printf("%s %-15s %s (after %v)\n", marker, name, spec.Description, spec.Dependencies)
	}
	return nil
}

func runWatch(seedPath, output string, workers int, cacheDir string) error {
	resultStore, err := setupStore(cacheDir, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := resultStore.Close(); err != nil {
			slog.Warn("Failed to close result store", "error", err)
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(seedPath); err != nil {
		return fmt.Errorf("watch %s: %w", seedPath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initial build before waiting for changes.
	if err := buildOnce(seedPath, output, workers, resultStore, metrics.NoopRecorder{}); err != nil {
		slog.Error("Build failed", "error", err)
	}

	slog.Info("Watching seed file", "path", seedPath)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutdown signal received")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			slog.Info("Seed changed, rebuilding", "path", event.Name)
			if err := buildOnce(seedPath, output, workers, resultStore, metrics.NoopRecorder{}); err != nil {
				slog.Error("Build failed", "error", err)
			}
			// Editors replace the file on save; re-arm the watch.
			_ = watcher.Add(seedPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

// setupStore picks the result cache: disk-backed when a cache directory is
// configured, otherwise a fresh in-memory store (which makes --no-cache a
// per-build memory store that starts empty).
func setupStore(cacheDir string, noCache bool) (store.Store, error) {
	if noCache || cacheDir == "" {
		return store.NewMemory(), nil
	}
	return store.NewDisk(cacheDir)
}

// setupMetrics wires the Prometheus recorder and exposition endpoint when
// requested; otherwise metrics are a no-op.
func setupMetrics(listen string) (metrics.Recorder, func(), error) {
	if listen == "" {
		return metrics.NoopRecorder{}, func() {}, nil
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Metrics exposed", "addr", listen)

	return recorder, func() { _ = srv.Close() }, nil
}
