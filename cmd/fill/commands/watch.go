package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/fill/internal/announce"
	"github.com/dyluth/fill/internal/printer"
	"github.com/dyluth/fill/internal/watch"
)

var (
	watchOutputFormat string
	watchBuild        int
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream builds as they are announced",
	Long: `Stream builds of the project as they are announced over Redis.

Requires announce.redis_url in fill.yml. Builds are announced by
'fill publish' after the service has accepted them.

With --build, waits for that build of the configured version to be
announced, prints it and exits.

Output Formats:
  default - One human-readable line per build
  json    - Line-delimited JSON, one record per line

Examples:
  # Follow every build
  fill watch

  # Block a pipeline until build 42 is announced
  fill watch --build 42 --timeout 10m

  # Export records as JSON
  fill watch --output=json > builds.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().IntVar(&watchBuild, "build", 0, "Wait for this build of the configured version, then exit")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 5*time.Minute, "How long --build waits")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Require("project"); err != nil {
		return configError(err)
	}
	if cfg.Announce == nil || cfg.Announce.RedisURL == "" {
		return printer.Error(
			"announcements not configured",
			"fill watch reads builds from Redis, but announce.redis_url is not set.",
			[]string{fmt.Sprintf("Add to %s:\n  announce:\n    redis_url: redis://localhost:6379", configPath)},
		)
	}

	announcer, err := announce.NewAnnouncer(cfg.Announce.RedisURL)
	if err != nil {
		return configError(err)
	}
	defer announcer.Close()

	if err := announcer.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"URL": cfg.Announce.RedisURL},
			[]string{"Check announce.redis_url and that Redis is running"},
		)
	}

	if cmd.Flags().Changed("build") {
		if err := cfg.Require("version"); err != nil {
			return configError(err)
		}
		return waitForBuild(ctx, cmd, announcer, cfg.Project, cfg.Version, outputFormat)
	}

	sub, err := announcer.Subscribe(ctx, cfg.Project)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	if outputFormat == watch.OutputFormatDefault {
		printer.Info("Watching builds of %s (Ctrl+C to stop)\n", cfg.Project)
	}
	return watch.StreamBuilds(ctx, sub, outputFormat, cmd.OutOrStdout())
}

func waitForBuild(ctx context.Context, cmd *cobra.Command, announcer *announce.Announcer, project, version string, format watch.OutputFormat) error {
	record, err := watch.PollForBuild(ctx, announcer, project, version, watchBuild, watchTimeout)
	if err != nil {
		return printer.Error(
			fmt.Sprintf("build %d not announced", watchBuild),
			fmt.Sprintf("Error: %v", err),
			[]string{"Check the build was published with announce.redis_url set"},
		)
	}

	return watch.WriteBuild(cmd.OutOrStdout(), format, record)
}
