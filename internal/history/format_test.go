package history

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/fill/pkg/fill"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{name: "empty message", message: "", expected: "-"},
		{name: "single line", message: "Fix chunk loading", expected: "Fix chunk loading"},
		{name: "subject and body", message: "Fix chunk loading\n\nLonger explanation", expected: "Fix chunk loading"},
		{name: "leading blank lines", message: "\n\n  Update upstream\n", expected: "Update upstream"},
		{name: "exactly 60 chars", message: strings.Repeat("a", 60), expected: strings.Repeat("a", 60)},
		{name: "61 chars truncates", message: strings.Repeat("a", 61), expected: strings.Repeat("a", 57) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatMessage(tt.message))
		})
	}
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "-", formatAge(time.Time{}))
	assert.Equal(t, "2h ago", formatAge(time.Now().Add(-2*time.Hour-time.Minute)))
	assert.Equal(t, "3d ago", formatAge(time.Now().Add(-73*time.Hour)))
}

func TestFormatLatestBuild(t *testing.T) {
	assert.Equal(t, "-", formatLatestBuild(nil))
	assert.Equal(t, "#12", formatLatestBuild([]int{3, 12, 7}))
}

func TestFormatVersions(t *testing.T) {
	var buf bytes.Buffer

	n := FormatVersions(&buf, "paper", []fill.VersionSummary{
		{Version: fill.Version{ID: "1.21.1"}, Builds: []int{2, 1}},
		{Version: fill.Version{ID: "1.21"}},
	})

	assert.Equal(t, 2, n)
	out := buf.String()
	assert.Contains(t, out, "Versions of 'paper'")
	assert.Contains(t, out, "1.21.1")
	assert.Contains(t, out, "#2")
	assert.Contains(t, out, "2 versions found")
}

func TestFormatVersions_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, FormatVersions(&buf, "paper", nil))
	assert.Equal(t, "No versions found for project 'paper'\n", buf.String())
}

func TestFormatBuilds(t *testing.T) {
	var buf bytes.Buffer

	n := FormatBuilds(&buf, "paper", "1.21.1", []fill.BuildSummary{
		{
			ID:      5,
			Channel: fill.ChannelBeta,
			Commits: []fill.Commit{{SHA: "0123456789abcdef0123456789abcdef01234567", Message: "Fix things\n\nbody"}},
		},
		{ID: 4},
	})

	assert.Equal(t, 2, n)
	out := buf.String()
	assert.Contains(t, out, "Builds of paper 1.21.1")
	assert.Contains(t, out, "BETA")
	assert.Contains(t, out, "STABLE", "unset channel shows the default")
	assert.Contains(t, out, "0123456789 Fix things")
	assert.Contains(t, out, "2 builds found")
}

func TestFormatCommits(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, FormatCommits(&buf, nil))
	assert.Equal(t, "No new commits\n", buf.String())

	buf.Reset()
	n := FormatCommits(&buf, []fill.Commit{{SHA: "abcdef0123456789", Message: "One"}})
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "abcdef0123")
	assert.Contains(t, buf.String(), "1 commit\n")
}

func TestFormatJSONL(t *testing.T) {
	var buf bytes.Buffer

	builds := []fill.BuildSummary{{ID: 2}, {ID: 1}}
	require.NoError(t, FormatJSONL(&buf, builds))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first fill.BuildSummary
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 2, first.ID)
}
