package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dyluth/fill/internal/announce"
	"github.com/dyluth/fill/internal/config"
	"github.com/dyluth/fill/internal/git"
	"github.com/dyluth/fill/internal/printer"
	"github.com/dyluth/fill/internal/publish"
	"github.com/dyluth/fill/internal/reconcile"
)

var (
	publishBuild      int
	publishChannel    string
	publishTimestamp  string
	publishNoAnnounce bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the build's artifacts and metadata",
	Long: `Publish the current build to the distribution service.

A publish attempt runs three phases, stopping at the first failure:

  reconciling - find the commits new since the last published build
  uploading   - upload every artifact, one at a time
  publishing  - submit the build's metadata record

The metadata record is only submitted once every upload has been accepted.
Nothing is retried: re-running starts a new attempt with a new id.

If announce.redis_url is configured, the published record is then announced
over Redis. An announce failure is reported as a warning only.

Examples:
  # Publish using fill.yml and BUILD_NUMBER
  fill publish

  # Publish build 42 on the beta channel
  fill publish --build 42 --channel beta`,
	RunE: runPublish,
}

func init() {
	addBuildFlags(publishCmd.Flags())
	publishCmd.Flags().BoolVar(&publishNoAnnounce, "no-announce", false, "Skip announcing the build over Redis")

	rootCmd.AddCommand(publishCmd)
}

// addBuildFlags registers the flags that override the build section of fill.yml.
func addBuildFlags(flags *pflag.FlagSet) {
	flags.IntVar(&publishBuild, "build", 0, "Build number (overrides build.id and BUILD_NUMBER)")
	flags.StringVar(&publishChannel, "channel", "", "Build channel: alpha, beta, experimental, stable or recommended")
	flags.StringVar(&publishTimestamp, "timestamp", "", "Build time (RFC3339 or duration ago, default now)")
}

// applyBuildFlags copies explicitly set build flags over the loaded config.
func applyBuildFlags(flags *pflag.FlagSet, cfg *config.FillConfig) {
	if flags.Changed("build") {
		id := publishBuild
		cfg.Build.ID = &id
	}
	if flags.Changed("channel") {
		cfg.Build.Channel = publishChannel
	}
	if flags.Changed("timestamp") {
		cfg.Build.Timestamp = publishTimestamp
	}
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyBuildFlags(cmd.Flags(), cfg)

	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	repo, err := git.Open(workDir)
	if err != nil {
		if errors.Is(err, git.ErrNotRepository) {
			return printer.Error(
				"not a Git repository",
				fmt.Sprintf("Fill reads the build's commits from a Git checkout, but %s is not inside one.", workDir),
				[]string{"Run from inside the checkout, or pass it explicitly:\n  fill publish --dir <checkout>"},
			)
		}
		return fmt.Errorf("failed to open repository: %w", err)
	}

	historyClient, err := newHistoryClient(cfg)
	if err != nil {
		return err
	}
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return err
	}

	publisher, err := publish.New(publish.Config{
		BaseURL:      cfg.APIURL,
		UserAgent:    userAgent(),
		HTTPClient:   httpClient,
		Commits:      reconcile.New(repo, historyClient),
		OnTransition: printTransition,
	})
	if err != nil {
		return configError(err)
	}

	req, err := cfg.Request()
	if err != nil {
		return configError(err)
	}

	printer.Info("Publishing %s %s build %d (%d %s)\n\n",
		req.Project, req.Version, req.Build, len(req.Artifacts), pluralize(len(req.Artifacts), "artifact", "artifacts"))

	result, err := publisher.Publish(ctx, req)
	if err != nil {
		return publishError(err)
	}

	printer.Println()
	printer.Success("Published %s %s build %d\n", result.Record.Project, result.Record.Version, result.Record.Build)
	printer.Detail("attempt", result.ID.String())
	printer.Detail("channel", string(result.Record.Channel))
	printer.Detail("commits", fmt.Sprintf("%d", len(result.Commits)))
	for _, key := range cfg.DownloadKeys() {
		d := result.Record.Downloads[key]
		printer.Detail(key, fmt.Sprintf("%s (%d bytes, sha256 %s)", d.Name, d.Size, d.Checksum.SHA256))
	}

	if cfg.Announce != nil && !publishNoAnnounce {
		announceBuild(ctx, cfg.Announce.RedisURL, result)
	}

	return nil
}

// announceBuild fans the published record out over Redis. The service has
// already accepted the build, so failures here are only warnings.
func announceBuild(ctx context.Context, redisURL string, result *publish.Result) {
	announcer, err := announce.NewAnnouncer(redisURL)
	if err != nil {
		printer.Warning("Build not announced: %v\n", err)
		return
	}
	defer announcer.Close()

	if err := announcer.Announce(ctx, result.Record); err != nil {
		printer.Warning("Build not announced: %v\n", err)
		return
	}
	printer.Success("Announced build %d\n", result.Record.Build)
}

func printTransition(from, to publish.State) {
	switch to {
	case publish.StateReconciling:
		printer.Step("Reconciling commits...\n")
	case publish.StateUploading:
		printer.Step("Uploading artifacts...\n")
	case publish.StatePublishing:
		printer.Step("Publishing build metadata...\n")
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
