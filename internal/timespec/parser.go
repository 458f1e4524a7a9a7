package timespec

import (
	"fmt"
	"time"
)

// Parse parses a time specification relative to now.
// Supports two formats:
//   - RFC3339 timestamps, with optional fractional seconds: "2024-06-13T17:00:00Z"
//   - Go duration format: "1h", "30m", "1h30m", "2h45m30s"
//
// Duration specifications are relative to now (subtracted from it).
// For example, "1h" means "1 hour ago".
//
// The result is always in UTC.
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	// RFC3339Nano also accepts timestamps without a fractional part
	if t, err := time.Parse(time.RFC3339Nano, spec); err == nil {
		return t.UTC(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2024-06-13T17:00:00Z')", spec)
}

// ParseRange parses both --since and --until flags into a time range.
// Zero values indicate "no bound" for that end of the range.
//
// Validates that since < until if both are specified.
func ParseRange(since, until string, now time.Time) (time.Time, time.Time, error) {
	var sinceT, untilT time.Time
	var err error

	if since != "" {
		sinceT, err = Parse(since, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilT, err = Parse(until, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !sinceT.IsZero() && !untilT.IsZero() && !sinceT.Before(untilT) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}

	return sinceT, untilT, nil
}
