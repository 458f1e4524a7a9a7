package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/fill/internal/git"
	"github.com/dyluth/fill/internal/printer"
	"github.com/dyluth/fill/internal/scaffold"
)

var (
	forceInit   bool
	initProject string
	initFamily  string
	initVersion string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter fill.yml",
	Long: `Create a starter fill.yml in the root of the Git checkout.

The project name defaults to the checkout directory's name. Edit
build.downloads to point at your build outputs before publishing.

Use --force to replace an existing fill.yml.`,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand, kept free alongside the global -c
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Replace an existing fill.yml")
	initCmd.Flags().StringVar(&initProject, "project", "", "Project name (default: checkout directory name)")
	initCmd.Flags().StringVar(&initFamily, "family", "", "Version family (default: the version)")
	initCmd.Flags().StringVar(&initVersion, "version", "", "Version being built (default: 1.0.0)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// The config lives next to the checkout it reads commits from
	repo, err := git.Open(workDir)
	if err != nil {
		if errors.Is(err, git.ErrNotRepository) {
			return printer.Error(
				"not a Git repository",
				"Fill must be initialized inside a Git checkout.",
				[]string{"Initialize one first:\n  git init"},
			)
		}
		return fmt.Errorf("failed to open repository: %w", err)
	}
	root, err := repo.Root()
	if err != nil {
		return fmt.Errorf("failed to locate checkout root: %w", err)
	}

	if !forceInit {
		if err := scaffold.CheckExisting(root); err != nil {
			return printer.Error("project already initialized", fmt.Sprintf("Error: %v", err), nil)
		}
	}

	opts := scaffold.Options{
		APIURL:  apiURL,
		Project: initProject,
		Family:  initFamily,
		Version: initVersion,
	}
	if err := scaffold.Initialize(root, forceInit, opts); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess()
	return nil
}
