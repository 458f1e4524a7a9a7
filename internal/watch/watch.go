package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/fill/internal/announce"
	"github.com/dyluth/fill/pkg/fill"
)

// OutputFormat selects how streamed builds are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// PollForBuild polls until the given build has been announced.
// Returns the announced record or an error if timeout occurs.
// Polls every 200ms for the specified timeout duration.
func PollForBuild(ctx context.Context, a *announce.Announcer, project, version string, build int, timeout time.Duration) (*fill.PublishRecord, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for %s %s build %d after %v", project, version, build, timeout)

		case <-ticker.C:
			record, err := a.Get(ctx, project, version, build)
			if err != nil {
				if announce.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query for build: %w", err)
			}
			return record, nil
		}
	}
}

// StreamBuilds writes every build delivered on sub until ctx is cancelled or
// the subscription ends. Undecodable events are reported inline and skipped.
func StreamBuilds(ctx context.Context, sub *announce.Subscription, format OutputFormat, w io.Writer) error {
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case record, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := WriteBuild(w, format, record); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if format == OutputFormatDefault {
				fmt.Fprintf(w, "⚠️  %v\n", err)
			}
		}
	}
}

// WriteBuild writes one record in the given format.
func WriteBuild(w io.Writer, format OutputFormat, record *fill.PublishRecord) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal build to JSON: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	commitWord := "commits"
	if len(record.Commits) == 1 {
		commitWord = "commit"
	}
	_, err := fmt.Fprintf(w, "[%s] 📦 %s %s build %d on %s (%d %s, %d downloads)\n",
		record.Time.Local().Format("15:04:05"),
		record.Project,
		record.Version,
		record.Build,
		record.Channel,
		len(record.Commits),
		commitWord,
		len(record.Downloads),
	)
	return err
}
