package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
)

const validSeed = `
pname: serde
version: 1.0.200
language: rust
hash: a3f5c1
github:
  owner: serde-rs
  repo: serde
  rev: v1.0.200
  hash: b4e6d2
processors:
  doc-render:
    enabled: false
  stats:
    persist: false
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serde.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidSeed(t *testing.T) {
	s, err := Load(writeSeed(t, validSeed))
	require.NoError(t, err)

	require.Equal(t, "serde", s.PName)
	require.Equal(t, "rust", s.Language)
	require.Equal(t, "https://github.com/serde-rs/serde", s.GitHub.URL())

	require.Len(t, s.Overrides, 2)
	require.NotNil(t, s.Overrides["doc-render"].Enabled)
	require.False(t, *s.Overrides["doc-render"].Enabled)
	require.Nil(t, s.Overrides["doc-render"].Persist)
	require.NotNil(t, s.Overrides["stats"].Persist)
	require.False(t, *s.Overrides["stats"].Persist)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeSeed(t, validSeed+"\nextra_field: true\n"))
	require.Error(t, err)
	require.True(t, bloomerrors.IsCategory(err, bloomerrors.CategoryConfig))
}

func TestLoadRejectsMissingIdentity(t *testing.T) {
	cases := map[string]string{
		"pname":    "version: 1.0.0\nlanguage: rust\ngithub: {owner: a, repo: b}\n",
		"version":  "pname: x\nlanguage: rust\ngithub: {owner: a, repo: b}\n",
		"language": "pname: x\nversion: 1.0.0\ngithub: {owner: a, repo: b}\n",
		"github":   "pname: x\nversion: 1.0.0\nlanguage: rust\n",
	}
	for missing, content := range cases {
		_, err := Load(writeSeed(t, content))
		require.Error(t, err, "missing %s", missing)
		require.True(t, bloomerrors.IsCategory(err, bloomerrors.CategoryConfig), "missing %s", missing)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestBloomRootBesideSeedFile(t *testing.T) {
	path := writeSeed(t, validSeed)
	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "serde"), s.BloomRoot())
}

func TestBloomRootForInMemorySeed(t *testing.T) {
	s := &Seed{PName: "left-pad"}
	require.Equal(t, "left-pad", s.BloomRoot())
}
