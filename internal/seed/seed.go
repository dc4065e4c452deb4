// Package seed defines the declarative package description consumed by the
// build engine and its YAML loader. A Seed is immutable once loaded.
package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
)

// GitHub holds the seed's source coordinates: where the package's source
// lives and which revision is pinned.
type GitHub struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev"`
	Hash  string `yaml:"hash,omitempty"` // pinned source tree hash
}

// URL returns the https clone URL for the coordinates.
func (g GitHub) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s", g.Owner, g.Repo)
}

// Override is a seed-level per-processor configuration override. Nil fields
// inherit the ecosystem default.
type Override struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	Persist *bool `yaml:"persist,omitempty"`
}

// Seed is the declarative input describing one package to process.
type Seed struct {
	PName     string              `yaml:"pname"`
	Version   string              `yaml:"version"`
	Language  string              `yaml:"language"`
	Hash      string              `yaml:"hash,omitempty"` // pinned registry content hash
	GitHub    GitHub              `yaml:"github"`
	Overrides map[string]Override `yaml:"processors,omitempty"`

	// Path is the seed file this was loaded from; empty for in-memory seeds.
	Path string `yaml:"-"`
}

// Load reads and validates a seed file. Unknown YAML keys are rejected so a
// typo in a seed never silently changes build behavior.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryConfig, bloomerrors.SeverityFatal, "read seed file")
	}

	var s Seed
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryConfig, bloomerrors.SeverityFatal, "parse seed file").
			WithContext("path", path)
	}
	s.Path = path

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the identity fields required by every build.
func (s *Seed) Validate() error {
	switch {
	case s.PName == "":
		return bloomerrors.ConfigError("seed is missing pname")
	case s.Version == "":
		return bloomerrors.ConfigError("seed is missing version")
	case s.Language == "":
		return bloomerrors.ConfigError("seed is missing language")
	case s.GitHub.Owner == "" || s.GitHub.Repo == "":
		return bloomerrors.ConfigError("seed is missing github owner/repo")
	}
	return nil
}

// BloomRoot returns the default output location for this seed: a directory
// named after the seed file (extension stripped), beside the seed itself.
func (s *Seed) BloomRoot() string {
	if s.Path == "" {
		return s.PName
	}
	base := filepath.Base(s.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(s.Path), base)
}
