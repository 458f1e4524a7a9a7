package filter

import (
	"time"

	"github.com/dyluth/fill/pkg/fill"
)

// Criteria defines filtering criteria for builds.
// All filters are ANDed together - a build must match ALL criteria to pass.
type Criteria struct {
	Since       time.Time         // Zero = no filter
	Until       time.Time         // Zero = no filter
	Channel     fill.BuildChannel // Empty = no filter
	WithCommits bool              // Only builds that carry commit data
}

// Matches returns true if the build matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(b fill.BuildSummary) bool {
	if !c.Since.IsZero() && b.Time.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && b.Time.After(c.Until) {
		return false
	}

	// A build listed without a channel is on the default one
	if c.Channel != "" && b.Channel.OrDefault() != c.Channel {
		return false
	}

	if c.WithCommits && len(b.Commits) == 0 {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.Channel != "" ||
		c.WithCommits
}

// Builds returns the builds matching the criteria, preserving service order.
func (c *Criteria) Builds(builds []fill.BuildSummary) []fill.BuildSummary {
	if !c.HasFilters() {
		return builds
	}

	matched := make([]fill.BuildSummary, 0, len(builds))
	for _, b := range builds {
		if c.Matches(b) {
			matched = append(matched, b)
		}
	}
	return matched
}
