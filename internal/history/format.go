package history

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/fill/pkg/fill"
)

// FormatVersions writes the version listing as a table.
// Columns: VERSION, BUILDS, LATEST. Returns the number of versions written.
func FormatVersions(w io.Writer, project string, versions []fill.VersionSummary) int {
	if len(versions) == 0 {
		fmt.Fprintf(w, "No versions found for project '%s'\n", project)
		return 0
	}

	fmt.Fprintf(w, "Versions of '%s':\n\n", project)
	fmt.Fprintf(w, "%-20s %-7s %s\n", "VERSION", "BUILDS", "LATEST")
	fmt.Fprintf(w, "%-20s %-7s %s\n", "--------------------", "-------", "------")

	for _, v := range versions {
		fmt.Fprintf(w, "%-20s %-7d %s\n",
			truncate(v.Version.ID, 20),
			len(v.Builds),
			formatLatestBuild(v.Builds),
		)
	}

	fmt.Fprintf(w, "\n%d %s found\n", len(versions), plural(len(versions), "version", "versions"))
	return len(versions)
}

// FormatBuilds writes the builds of one version as a table.
// Columns: BUILD, CHANNEL, AGE, COMMITS, DOWNLOADS, HEAD. Returns the number of builds written.
func FormatBuilds(w io.Writer, project, version string, builds []fill.BuildSummary) int {
	if len(builds) == 0 {
		fmt.Fprintf(w, "No builds found for %s %s\n", project, version)
		return 0
	}

	fmt.Fprintf(w, "Builds of %s %s:\n\n", project, version)
	fmt.Fprintf(w, "%-6s %-12s %-8s %-8s %-10s %s\n",
		"BUILD", "CHANNEL", "AGE", "COMMITS", "DOWNLOADS", "HEAD")
	fmt.Fprintf(w, "%-6s %-12s %-8s %-8s %-10s %s\n",
		"------", "------------", "--------", "--------", "----------", "----------------------------------------")

	for _, b := range builds {
		fmt.Fprintf(w, "%-6d %-12s %-8s %-8d %-10d %s\n",
			b.ID,
			string(b.Channel.OrDefault()),
			formatAge(b.Time),
			len(b.Commits),
			len(b.Downloads),
			formatHead(b.Commits),
		)
	}

	fmt.Fprintf(w, "\n%d %s found\n", len(builds), plural(len(builds), "build", "builds"))
	return len(builds)
}

// FormatCommits writes a commit list, one commit per line, in the order given.
func FormatCommits(w io.Writer, commits []fill.Commit) int {
	if len(commits) == 0 {
		fmt.Fprintln(w, "No new commits")
		return 0
	}

	for _, c := range commits {
		fmt.Fprintf(w, "%s %-8s %s\n", formatSHA(c.SHA), formatAge(c.Time), formatMessage(c.Message))
	}

	fmt.Fprintf(w, "\n%d %s\n", len(commits), plural(len(commits), "commit", "commits"))
	return len(commits)
}

// FormatJSONL writes items as line-delimited JSON, one item per line.
func FormatJSONL[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatLatestBuild shows the highest build number, or "-" for a version without builds.
func formatLatestBuild(builds []int) string {
	if len(builds) == 0 {
		return "-"
	}
	sorted := append([]int(nil), builds...)
	sort.Ints(sorted)
	return fmt.Sprintf("#%d", sorted[len(sorted)-1])
}

// formatHead shows the first commit of a build (its newest), or "-".
func formatHead(commits []fill.Commit) string {
	if len(commits) == 0 {
		return "-"
	}
	return formatSHA(commits[0].SHA) + " " + formatMessage(commits[0].Message)
}

func formatSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

// formatMessage returns the first non-empty line of a commit message, capped at 60 characters.
func formatMessage(message string) string {
	for _, line := range strings.Split(message, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return truncate(trimmed, 60)
		}
	}
	return "-"
}

// formatAge renders a time relative to now, like "2m ago" or "3d ago".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
