package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/fill/internal/filter"
	"github.com/dyluth/fill/internal/history"
	"github.com/dyluth/fill/internal/printer"
	"github.com/dyluth/fill/internal/timespec"
	"github.com/dyluth/fill/pkg/fill"
)

var (
	historyOutputFormat string
	historySince        string
	historyUntil        string
	historyChannel      string
	historyWithCommits  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [VERSION]",
	Short: "List published versions and builds",
	Long: `List what the distribution service holds for the project.

Without VERSION, lists every version with its build count and latest build.
With VERSION, lists that version's builds, most recent first.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one version or build per line

Filters (builds only):
  --since         - Show builds published after this time
  --until         - Show builds published before this time
  --channel       - Show builds on one channel
  --with-commits  - Show only builds that record commits

Examples:
  # List versions
  fill history

  # Builds of one version from the last day
  fill history 1.21.1 --since=24h

  # Builds as JSONL for piping to jq
  fill history 1.21.1 --output=jsonl | jq '.downloads'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Show builds after time (duration or RFC3339)")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "Show builds before time (duration or RFC3339)")
	historyCmd.Flags().StringVar(&historyChannel, "channel", "", "Show builds on this channel only")
	historyCmd.Flags().BoolVar(&historyWithCommits, "with-commits", false, "Show only builds that record commits")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if historyOutputFormat != "default" && historyOutputFormat != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", historyOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	since, until, err := timespec.ParseRange(historySince, historyUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time filter", fmt.Sprintf("Error: %v", err), nil)
	}

	criteria := filter.Criteria{Since: since, Until: until, WithCommits: historyWithCommits}
	if historyChannel != "" {
		criteria.Channel, err = fill.ParseBuildChannel(historyChannel)
		if err != nil {
			return printer.Error("invalid channel filter", fmt.Sprintf("Error: %v", err), nil)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Require("api_url", "project"); err != nil {
		return configError(err)
	}

	client, err := newHistoryClient(cfg)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		versions, err := client.ListVersions(ctx, cfg.Project)
		if err != nil {
			return remoteError(err)
		}
		if historyOutputFormat == "jsonl" {
			return history.FormatJSONL(cmd.OutOrStdout(), versions)
		}
		history.FormatVersions(cmd.OutOrStdout(), cfg.Project, versions)
		return nil
	}

	version := args[0]
	builds, err := client.ListBuilds(ctx, cfg.Project, version)
	if err != nil {
		return remoteError(err)
	}

	filtered := criteria.Builds(builds)

	if historyOutputFormat == "jsonl" {
		return history.FormatJSONL(cmd.OutOrStdout(), filtered)
	}
	history.FormatBuilds(cmd.OutOrStdout(), cfg.Project, version, filtered)
	return nil
}

func remoteError(err error) error {
	return printer.Error(
		"failed to read build history",
		fmt.Sprintf("Error: %v", err),
		[]string{"Check api_url points at the distribution service"},
	)
}
