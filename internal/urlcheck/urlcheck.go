// Package urlcheck cross-checks a seed's declared source location against the
// repository URL discovered in registry metadata.
package urlcheck

import "strings"

// Normalize strips a trailing slash and a trailing ".git" suffix so that
// equivalent repository URLs compare equal.
func Normalize(url string) string {
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")
	return url
}

// Matches reports whether a declared and a discovered repository URL refer to
// the same location. An absent side means there is nothing to validate
// against, so the check passes (no-opinion policy).
func Matches(declared, discovered string) bool {
	if declared == "" || discovered == "" {
		return true
	}
	return Normalize(declared) == Normalize(discovered)
}
