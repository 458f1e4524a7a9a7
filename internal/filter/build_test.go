package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/fill/pkg/fill"
)

var base = time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC)

func build(id int, age time.Duration, channel fill.BuildChannel, commits int) fill.BuildSummary {
	b := fill.BuildSummary{ID: id, Time: base.Add(-age), Channel: channel}
	for i := 0; i < commits; i++ {
		b.Commits = append(b.Commits, fill.Commit{SHA: "0123456789abcdef0123456789abcdef01234567"})
	}
	return b
}

func TestCriteriaMatches(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		build    fill.BuildSummary
		expected bool
	}{
		{
			name:     "no filters",
			criteria: Criteria{},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: true,
		},
		{
			name:     "since excludes older build",
			criteria: Criteria{Since: base.Add(-30 * time.Minute)},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: false,
		},
		{
			name:     "since includes newer build",
			criteria: Criteria{Since: base.Add(-2 * time.Hour)},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: true,
		},
		{
			name:     "until excludes newer build",
			criteria: Criteria{Until: base.Add(-2 * time.Hour)},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: false,
		},
		{
			name:     "bounds are inclusive",
			criteria: Criteria{Since: base.Add(-time.Hour), Until: base.Add(-time.Hour)},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: true,
		},
		{
			name:     "channel mismatch",
			criteria: Criteria{Channel: fill.ChannelBeta},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: false,
		},
		{
			name:     "unset channel counts as stable",
			criteria: Criteria{Channel: fill.ChannelStable},
			build:    build(1, time.Hour, "", 0),
			expected: true,
		},
		{
			name:     "with commits excludes empty build",
			criteria: Criteria{WithCommits: true},
			build:    build(1, time.Hour, fill.ChannelStable, 0),
			expected: false,
		},
		{
			name:     "with commits includes build with commits",
			criteria: Criteria{WithCommits: true},
			build:    build(1, time.Hour, fill.ChannelStable, 2),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.criteria.Matches(tt.build))
		})
	}
}

func TestCriteriaHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{Since: base}).HasFilters())
	assert.True(t, (&Criteria{Until: base}).HasFilters())
	assert.True(t, (&Criteria{Channel: fill.ChannelAlpha}).HasFilters())
	assert.True(t, (&Criteria{WithCommits: true}).HasFilters())
}

func TestCriteriaBuilds(t *testing.T) {
	builds := []fill.BuildSummary{
		build(3, time.Minute, fill.ChannelBeta, 1),
		build(2, time.Hour, fill.ChannelStable, 0),
		build(1, 2*time.Hour, fill.ChannelBeta, 3),
	}

	t.Run("preserves service order", func(t *testing.T) {
		c := &Criteria{Channel: fill.ChannelBeta}
		matched := c.Builds(builds)
		if assert.Len(t, matched, 2) {
			assert.Equal(t, 3, matched[0].ID)
			assert.Equal(t, 1, matched[1].ID)
		}
	})

	t.Run("no filters returns everything", func(t *testing.T) {
		c := &Criteria{}
		assert.Equal(t, builds, c.Builds(builds))
	})

	t.Run("nothing matches", func(t *testing.T) {
		c := &Criteria{Channel: fill.ChannelRecommended}
		assert.Empty(t, c.Builds(builds))
	})
}
