package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// GitRepo is an in-memory Git repository for building commit graphs in tests.
// Every commit is one minute newer than the previous one so committer-time
// ordering is deterministic.
type GitRepo struct {
	T    *testing.T
	Repo *gogit.Repository

	fs    billy.Filesystem
	clock time.Time
	n     int
}

// NewGitRepo creates an empty in-memory repository.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	fs := memfs.New()
	repo, err := gogit.Init(memory.NewStorage(), fs)
	require.NoError(t, err, "Failed to initialize in-memory repository")

	return &GitRepo{
		T:     t,
		Repo:  repo,
		fs:    fs,
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// NewGitRepoAt initializes a repository on disk in dir, for code that opens
// checkouts by path.
func NewGitRepoAt(t *testing.T, dir string) *GitRepo {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err, "Failed to initialize repository in %s", dir)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &GitRepo{
		T:     t,
		Repo:  repo,
		fs:    wt.Filesystem,
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Commit records a commit with the given message and returns its SHA.
// With no parents the commit extends HEAD; otherwise it gets exactly the
// given parents, which is how merges and side branches are built. HEAD
// always moves to the new commit.
func (g *GitRepo) Commit(message string, parents ...string) string {
	g.T.Helper()

	g.n++
	g.clock = g.clock.Add(time.Minute)

	name := fmt.Sprintf("file-%d.txt", g.n)
	f, err := g.fs.Create(name)
	require.NoError(g.T, err)
	_, err = f.Write([]byte(message))
	require.NoError(g.T, err)
	require.NoError(g.T, f.Close())

	wt, err := g.Repo.Worktree()
	require.NoError(g.T, err)
	_, err = wt.Add(name)
	require.NoError(g.T, err)

	opts := &gogit.CommitOptions{
		Author: &object.Signature{Name: "Fill Test", Email: "test@fill.local", When: g.clock},
	}
	for _, p := range parents {
		opts.Parents = append(opts.Parents, plumbing.NewHash(p))
	}

	hash, err := wt.Commit(message, opts)
	require.NoError(g.T, err, "Failed to commit %q", message)

	return hash.String()
}

// Chain records one commit per message on top of HEAD and returns their SHAs
// in the order given (oldest first).
func (g *GitRepo) Chain(messages ...string) []string {
	g.T.Helper()

	shas := make([]string, len(messages))
	for i, m := range messages {
		shas[i] = g.Commit(m)
	}
	return shas
}
