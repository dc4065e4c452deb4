// Package hashutil computes the deterministic content hashes used for result
// identities and cache keys. Tree hashes use a sorted per-file digest list so
// the result is independent of directory walk order.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sum returns the hex sha256 of the given parts joined with a NUL separator.
// Used for composite keys where individual parts may contain arbitrary text.
func Sum(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile returns the hex sha256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashTree returns a deterministic hex sha256 for a directory tree: each
// file contributes sha256(relpath NUL content), the per-file digests are
// sorted and the sorted list is hashed. A missing or empty directory hashes
// to the digest of the empty list.
func HashTree(root string) (string, error) {
	digests, err := fileDigests(root)
	if err != nil {
		return "", err
	}
	sort.Strings(digests)

	h := sha256.New()
	for _, d := range digests {
		h.Write([]byte(d))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileDigests(root string) ([]string, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	var digests []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		h := sha256.New()
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write([]byte{0})
		h.Write(content)
		digests = append(digests, hex.EncodeToString(h.Sum(nil)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return digests, nil
}

// TreeStats reports the file count and total byte size of a directory tree.
// A missing directory counts as empty.
func TreeStats(root string) (files int, bytes int64, err error) {
	_, statErr := os.Stat(root)
	if os.IsNotExist(statErr) {
		return 0, 0, nil
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		bytes += info.Size()
		return nil
	})
	return files, bytes, err
}

// ShortHash returns a truncated display form of a hex digest.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// IsHex reports whether s looks like a hex digest (used when validating
// pinned hashes from seed files, which may carry an "sha256-" prefix).
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
