// Package report implements the terminal finalize processor: it aggregates
// every upstream node's configuration, timing and published artifacts into a
// machine-readable bloom.json and a human-readable README.md.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/seedbloom/internal/format"
	"git.home.luguber.info/inful/seedbloom/internal/hashutil"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
)

// Output file names, published at the bloom root.
const (
	MachineFile = "bloom.json"
	HumanFile   = "README.md"
)

// GitHubInfo mirrors the seed's source coordinates in the machine report.
type GitHubInfo struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Rev   string `json:"rev"`
	Hash  string `json:"hash,omitempty"`
}

// ProcessorEntry is one node's section of the machine report. Optional
// fields are omitted entirely (not null) when not applicable: buildDuration
// requires an enabled node, the artifact fields additionally require
// persist=true.
type ProcessorEntry struct {
	Active        bool   `json:"active"`
	Published     bool   `json:"published"`
	BuildDuration *int64 `json:"buildDuration,omitempty"`
	FileCount     *int   `json:"fileCount,omitempty"`
	FileSize      *int64 `json:"fileSize,omitempty"`
	Hash          string `json:"hash,omitempty"`
}

// BloomReport is the machine-readable build report.
type BloomReport struct {
	PName         string                    `json:"pname"`
	Version       string                    `json:"version"`
	Language      string                    `json:"language"`
	Hash          string                    `json:"hash,omitempty"`
	GitHub        GitHubInfo                `json:"github"`
	LastBuild     string                    `json:"lastBuild"`
	BuildDuration int64                     `json:"buildDuration"`
	Processors    map[string]ProcessorEntry `json:"processors"`
}

// nowFunc is replaceable in tests.
var nowFunc = time.Now

// Run returns the finalize processor body. order lists the upstream nodes in
// execution order and drives the table row order.
func Run(order []processor.Name) processor.RunFunc {
	return func(_ context.Context, pc *processor.Context) error {
		rep, rows, err := aggregate(order, pc)
		if err != nil {
			return err
		}

		machine, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal bloom report: %w", err)
		}
		machine = append(machine, '\n')
		if err := os.WriteFile(filepath.Join(pc.PublishDir(), MachineFile), machine, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", MachineFile, err)
		}

		human := renderHuman(rep, order, rows)
		if err := os.WriteFile(filepath.Join(pc.PublishDir(), HumanFile), []byte(human), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", HumanFile, err)
		}
		return nil
	}
}

// row carries the presentation state for one table line.
type row struct {
	entry     ProcessorEntry
	fileCount int
	fileSize  int64
}

func aggregate(order []processor.Name, pc *processor.Context) (*BloomReport, map[processor.Name]row, error) {
	s := pc.Seed
	rep := &BloomReport{
		PName:    s.PName,
		Version:  s.Version,
		Language: s.Language,
		Hash:     s.Hash,
		GitHub: GitHubInfo{
			Owner: s.GitHub.Owner,
			Repo:  s.GitHub.Repo,
			Rev:   s.GitHub.Rev,
			Hash:  s.GitHub.Hash,
		},
		LastBuild:  nowFunc().UTC().Format(time.RFC3339),
		Processors: make(map[string]ProcessorEntry, len(order)),
	}

	rows := make(map[processor.Name]row, len(order))
	var total int64

	for _, name := range order {
		res, ok := pc.Dep(name)
		if !ok {
			return nil, nil, fmt.Errorf("missing result for processor %q", name)
		}
		cfg, ok := pc.DepConfig(name)
		if !ok {
			return nil, nil, fmt.Errorf("missing config for processor %q", name)
		}

		entry := ProcessorEntry{
			Active:    cfg.Enabled,
			Published: cfg.Enabled && cfg.Persist,
		}
		r := row{}

		if cfg.Enabled {
			millis := res.Timing.Millis()
			entry.BuildDuration = &millis
			total += millis

			if cfg.Persist {
				files, bytes, err := hashutil.TreeStats(res.PublishDir)
				if err != nil {
					return nil, nil, fmt.Errorf("stat publish tree for %q: %w", name, err)
				}
				entry.FileCount = &files
				entry.FileSize = &bytes
				entry.Hash = res.Identity
				r.fileCount = files
				r.fileSize = bytes
			}
		}

		r.entry = entry
		rows[name] = r
		rep.Processors[string(name)] = entry
	}

	rep.BuildDuration = total
	return rep, rows, nil
}

func renderHuman(rep *BloomReport, order []processor.Name, rows map[processor.Name]row) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s v%s\n\n", rep.PName, rep.Version)
	fmt.Fprintf(&b, "**Language**: %s\n\n", rep.Language)
	fmt.Fprintf(&b, "**Last build**: %s\n\n", rep.LastBuild)
	fmt.Fprintf(&b, "**Build duration**: %s\n\n", format.Duration(rep.BuildDuration))

	b.WriteString("## Processors\n\n")
	b.WriteString("| Processor | Active | Published | Duration | Files | Size |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")

	for _, name := range order {
		r := rows[name]
		e := r.entry

		active := "✗"
		published := "-"
		duration := "-"
		files := "-"
		size := "-"

		if e.Active {
			active = "✓"
			duration = format.Duration(*e.BuildDuration)
			if e.Published {
				// An empty publish tree produces no folder to link to.
				published = "✓"
				if r.fileCount > 0 {
					published = fmt.Sprintf("[%s](./%s/)", name, name)
				}
				files = fmt.Sprintf("%d", r.fileCount)
				size = format.Size(r.fileSize)
			}
		}

		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			name, active, published, duration, files, size)
	}

	return b.String()
}
