// Package reconcile works out which local commits belong to the build being
// published: everything reachable from HEAD that no earlier published build
// of the version lineage already covers.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/fill/pkg/fill"
)

// Graph is the read-only view of the local commit graph the reconciler walks.
type Graph interface {
	// Head returns the commit the checkout is at.
	Head() (fill.Commit, error)

	// Resolve looks up a commit by SHA.
	Resolve(sha string) (fill.Commit, error)

	// AncestorsExcluding returns the commits reachable from head but not from
	// boundary, newest first. An empty boundary means no exclusion.
	AncestorsExcluding(head, boundary string) ([]fill.Commit, error)
}

// History is the subset of the remote history client the reconciler needs.
type History interface {
	ListVersions(ctx context.Context, project string) ([]fill.VersionSummary, error)
	ListBuilds(ctx context.Context, project, version string) ([]fill.BuildSummary, error)
}

// Source says where a boundary commit was found.
type Source string

const (
	// SourceNone means no published build carries commit data
	SourceNone Source = "none"

	// SourceCurrentVersion means the boundary came from a build of the version being published
	SourceCurrentVersion Source = "current-version"

	// SourceOtherVersion means the boundary came from the most recent other version with builds
	SourceOtherVersion Source = "other-version"
)

// Boundary is the newest commit already represented in a published build.
type Boundary struct {
	SHA     string // Empty when Source is SourceNone
	Source  Source
	Version string // Version the boundary build belongs to
	Build   int    // Build the boundary commit was taken from
}

// Reconciler computes the commit list of a build.
type Reconciler struct {
	graph   Graph
	history History
}

// New creates a reconciler over a local graph and the remote history.
func New(graph Graph, history History) *Reconciler {
	return &Reconciler{graph: graph, history: history}
}

// Reconcile returns the commits of the build being published, oldest first.
func (r *Reconciler) Reconcile(ctx context.Context, project, version string) ([]fill.Commit, error) {
	head, err := r.graph.Head()
	if err != nil {
		return nil, &fill.Error{Kind: fill.KindCommitResolutionFailed, Op: "resolve HEAD", Err: err}
	}

	boundary, err := r.FindBoundary(ctx, project, version)
	if err != nil {
		return nil, err
	}

	if boundary.SHA != "" {
		// A boundary the local graph cannot see must not widen the walk to
		// the whole history: that would report published commits again.
		if _, err := r.graph.Resolve(boundary.SHA); err != nil {
			return nil, &fill.Error{
				Kind: fill.KindCommitResolutionFailed,
				Op:   fmt.Sprintf("resolve boundary commit %s from %s build %d", boundary.SHA, boundary.Version, boundary.Build),
				Err:  err,
			}
		}
		log.Printf("[INFO] Boundary commit %s (%s %s build %d)", boundary.SHA, boundary.Source, boundary.Version, boundary.Build)
	} else {
		log.Printf("[INFO] No published build carries commits, including full history of %s", head.SHA)
	}

	newestFirst, err := r.graph.AncestorsExcluding(head.SHA, boundary.SHA)
	if err != nil {
		return nil, &fill.Error{Kind: fill.KindCommitResolutionFailed, Op: "walk commit graph", Err: err}
	}

	return reversed(newestFirst), nil
}

// FindBoundary locates the newest commit the service already knows for this
// version lineage. Builds of the version being published take precedence;
// failing that, the first other version in service order that has builds is
// used. Builds with an empty commit list are skipped in both cases.
func (r *Reconciler) FindBoundary(ctx context.Context, project, version string) (Boundary, error) {
	versions, err := r.history.ListVersions(ctx, project)
	if err != nil {
		return Boundary{}, err
	}

	for _, v := range versions {
		if v.Version.ID != version || len(v.Builds) == 0 {
			continue
		}
		builds, err := r.history.ListBuilds(ctx, project, version)
		if err != nil {
			return Boundary{}, err
		}
		if b, ok := firstWithCommits(builds); ok {
			return Boundary{SHA: b.Commits[0].SHA, Source: SourceCurrentVersion, Version: version, Build: b.ID}, nil
		}
		log.Printf("[DEBUG] No build of %s carries commits, looking at other versions", version)
		break
	}

	for _, v := range versions {
		if v.Version.ID == version || len(v.Builds) == 0 {
			continue
		}
		builds, err := r.history.ListBuilds(ctx, project, v.Version.ID)
		if err != nil {
			return Boundary{}, err
		}
		if b, ok := firstWithCommits(builds); ok {
			return Boundary{SHA: b.Commits[0].SHA, Source: SourceOtherVersion, Version: v.Version.ID, Build: b.ID}, nil
		}
		break
	}

	return Boundary{Source: SourceNone}, nil
}

// firstWithCommits returns the first build, in service order (most recent
// first), whose commit list is not empty.
func firstWithCommits(builds []fill.BuildSummary) (fill.BuildSummary, bool) {
	for _, b := range builds {
		if len(b.Commits) > 0 {
			return b, true
		}
	}
	return fill.BuildSummary{}, false
}

func reversed(commits []fill.Commit) []fill.Commit {
	out := make([]fill.Commit, len(commits))
	for i, c := range commits {
		out[len(commits)-1-i] = c
	}
	return out
}
