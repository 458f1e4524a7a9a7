// Package git reads the local commit graph of a checkout.
//
// Repository wraps a go-git repository and exposes the three read-only
// operations a publish attempt needs: the head commit, resolving a commit
// reported by the service, and walking the commits between the two.
package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/dyluth/fill/pkg/fill"
)

// ErrNotRepository is returned by Open when no repository contains the directory.
var ErrNotRepository = errors.New("not a Git repository")

// Repository is a read-only view of a Git commit graph.
type Repository struct {
	repo *gogit.Repository
	dir  string
}

// Open opens the repository containing dir. Parent directories are searched
// for the .git directory, so dir may be any directory inside the checkout.
func Open(dir string) (*Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve checkout directory: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		return nil, fmt.Errorf("failed to open Git repository at %s: %w", abs, err)
	}

	return &Repository{repo: repo, dir: abs}, nil
}

// FromRepository wraps an already opened go-git repository, for example one
// backed by in-memory storage.
func FromRepository(repo *gogit.Repository) *Repository {
	return &Repository{repo: repo}
}

// Dir returns the directory the repository was opened from, or "" for
// repositories created with FromRepository.
func (r *Repository) Dir() string {
	return r.dir
}

// Root returns the top-level directory of the checkout.
func (r *Repository) Root() (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// Head returns the commit HEAD points at.
func (r *Repository) Head() (fill.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return fill.Commit{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return fill.Commit{}, fmt.Errorf("failed to read HEAD commit %s: %w", ref.Hash(), err)
	}

	return toCommit(c), nil
}

// Resolve looks up a commit by its full or abbreviated object name.
func (r *Repository) Resolve(sha string) (fill.Commit, error) {
	c, err := r.commit(sha)
	if err != nil {
		return fill.Commit{}, err
	}
	return toCommit(c), nil
}

// AncestorsExcluding returns every commit reachable from head that is not
// reachable from boundary, newest first by committer time. This is the set
// `git log boundary..head` prints. An empty boundary returns the full history
// of head.
func (r *Repository) AncestorsExcluding(head, boundary string) ([]fill.Commit, error) {
	start, err := r.commit(head)
	if err != nil {
		return nil, err
	}

	excluded := make(map[plumbing.Hash]bool)
	if boundary != "" {
		stop, err := r.commit(boundary)
		if err != nil {
			return nil, err
		}

		iter := object.NewCommitPreorderIter(stop, nil, nil)
		err = iter.ForEach(func(c *object.Commit) error {
			excluded[c.Hash] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk history of %s: %w", boundary, err)
		}
	}

	var commits []fill.Commit
	// Excluded commits are pre-marked as seen so the walk never descends into them.
	iter := object.NewCommitIterCTime(start, excluded, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		if excluded[c.Hash] {
			return nil
		}
		commits = append(commits, toCommit(c))
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to walk history of %s: %w", head, err)
	}

	return commits, nil
}

func (r *Repository) commit(sha string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, fmt.Errorf("commit %s not found: %w", sha, err)
	}

	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s not found: %w", sha, err)
	}
	return c, nil
}

func toCommit(c *object.Commit) fill.Commit {
	return fill.Commit{
		SHA:     c.Hash.String(),
		Time:    c.Author.When.UTC(),
		Message: c.Message,
	}
}
