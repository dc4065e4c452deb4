// Package github fetches a package's source tree from its version-control
// host at a pinned revision. The checked-out worktree (without the .git
// directory) is copied into the destination and content-hashed.
package github

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
	"git.home.luguber.info/inful/seedbloom/internal/fsutil"
	"git.home.luguber.info/inful/seedbloom/internal/hashutil"
)

// FetchResult describes the fetched snapshot.
type FetchResult struct {
	Commit   string // resolved commit SHA
	TreeHash string // content hash of the copied worktree
}

// Fetch clones url, checks out rev (any revision go-git can resolve: tag,
// branch, or commit SHA; empty means the remote HEAD) and copies the
// worktree files into dest.
func Fetch(ctx context.Context, url, rev, dest string) (*FetchResult, error) {
	tmp, err := os.MkdirTemp("", "seedbloom-git-")
	if err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityError, "create clone workspace")
	}
	defer os.RemoveAll(tmp)

	repo, err := git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{URL: url})
	if err != nil {
		return nil, classifyCloneError(url, err)
	}

	if rev != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err != nil {
			return nil, bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "resolve revision "+rev).
				WithContext("url", url)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return nil, bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "open worktree")
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
			return nil, bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "checkout "+rev)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "read HEAD")
	}
	commit := head.Hash().String()
	if rev != "" {
		if hash, err := repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
			commit = hash.String()
		}
	}

	if err := copyWorktree(tmp, dest); err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityError, "copy worktree")
	}

	treeHash, err := hashutil.HashTree(dest)
	if err != nil {
		return nil, bloomerrors.Wrap(err, bloomerrors.CategoryFileSystem, bloomerrors.SeverityError, "hash source tree")
	}

	return &FetchResult{Commit: commit, TreeHash: treeHash}, nil
}

// copyWorktree copies the checked-out files, skipping the .git directory.
func copyWorktree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || rel == "." {
			return nil
		}
		target := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		return fsutil.CopyFile(path, target)
	})
}

// classifyCloneError wraps go-git failures into typed categories without
// string-matching downstream.
func classifyCloneError(url string, err error) error {
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization"):
		return bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "authentication failed").
			WithContext("url", url)
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "repository not found").
			WithContext("url", url)
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		return bloomerrors.WrapRetryable(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "rate limited").
			WithContext("url", url)
	default:
		return bloomerrors.Wrap(err, bloomerrors.CategoryGit, bloomerrors.SeverityError, "clone failed").
			WithContext("url", url)
	}
}
