package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/fill/internal/git"
	"github.com/dyluth/fill/internal/history"
	"github.com/dyluth/fill/internal/printer"
	"github.com/dyluth/fill/internal/reconcile"
)

var commitsOutputFormat string

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Preview the commits the next publish would include",
	Long: `Show the commits the next publish of this version would report, without
uploading or publishing anything.

The boundary is the newest commit already recorded by a published build:
a build of this version if there is one, otherwise a build of the most
recent other version. Every commit reachable from HEAD but not from the
boundary is listed, oldest first.

Output Formats:
  default - boundary summary followed by one commit per line
  jsonl   - Line-delimited JSON, one commit per line

Examples:
  fill commits
  fill commits --output=jsonl | jq -r .sha`,
	RunE: runCommits,
}

func init() {
	commitsCmd.Flags().StringVarP(&commitsOutputFormat, "output", "o", "default", "Output format: default or jsonl")

	rootCmd.AddCommand(commitsCmd)
}

func runCommits(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if commitsOutputFormat != "default" && commitsOutputFormat != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", commitsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Require("api_url", "project", "version"); err != nil {
		return configError(err)
	}

	repo, err := git.Open(workDir)
	if err != nil {
		if errors.Is(err, git.ErrNotRepository) {
			return printer.Error(
				"not a Git repository",
				fmt.Sprintf("%s is not inside a Git checkout.", workDir),
				[]string{"Run from inside the checkout, or pass it explicitly:\n  fill commits --dir <checkout>"},
			)
		}
		return fmt.Errorf("failed to open repository: %w", err)
	}

	historyClient, err := newHistoryClient(cfg)
	if err != nil {
		return err
	}
	reconciler := reconcile.New(repo, historyClient)

	boundary, err := reconciler.FindBoundary(ctx, cfg.Project, cfg.Version)
	if err != nil {
		return printer.Error("failed to read build history", fmt.Sprintf("Error: %v", err), nil)
	}

	commits, err := reconciler.Reconcile(ctx, cfg.Project, cfg.Version)
	if err != nil {
		return printer.Error("failed to reconcile commits", fmt.Sprintf("Error: %v", err),
			[]string{"Fetch the full history of the checkout:\n  git fetch --unshallow"})
	}

	if commitsOutputFormat == "jsonl" {
		return history.FormatJSONL(cmd.OutOrStdout(), commits)
	}

	switch boundary.Source {
	case reconcile.SourceNone:
		printer.Info("No published build records commits: listing the full history of HEAD\n\n")
	default:
		printer.Info("Boundary: %s (%s %s build %d, %s)\n\n",
			boundary.SHA, cfg.Project, boundary.Version, boundary.Build, boundary.Source)
	}
	history.FormatCommits(cmd.OutOrStdout(), commits)

	return nil
}
