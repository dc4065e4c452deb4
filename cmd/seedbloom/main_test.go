package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seedbloom/internal/store"
)

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serde.yaml")
	content := `pname: serde
version: 1.0.200
language: rust
github:
  owner: serde-rs
  repo: serde
  rev: v1.0.200
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunGraphPrintsTopology(t *testing.T) {
	require.NoError(t, runGraph(writeSeed(t)))
}

func TestRunGraphRejectsUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pname: x\nversion: \"1\"\nlanguage: fortran\ngithub: {owner: a, repo: b}\n"), 0o600))

	err := runGraph(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fortran")
}

func TestSetupStoreVariants(t *testing.T) {
	s, err := setupStore("", false)
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, s)

	s, err = setupStore(t.TempDir(), true)
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, s)

	dir := t.TempDir()
	s, err = setupStore(dir, false)
	require.NoError(t, err)
	require.IsType(t, &store.Disk{}, s)
	require.NoError(t, s.Close())
}
