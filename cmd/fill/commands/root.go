package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dyluth/fill/internal/config"
	"github.com/dyluth/fill/internal/history"
	"github.com/dyluth/fill/internal/printer"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath string
	apiURL     string
	workDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill - publish builds to a build-distribution service",
	Long: `Fill publishes a build's artifacts and metadata to a build-distribution
service.

A publish works out which commits are new since the last published build of
the version lineage, uploads every artifact with its SHA-256 checksum and
size, then submits one metadata record describing the build.

Configuration is read from fill.yml. FILL_API_URL, FILL_API_KEY and
BUILD_NUMBER fill in values the file leaves unset.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the fill configuration file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Service API root (overrides api_url and FILL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", ".", "Directory inside the Git checkout to read commits from")
}

// loadConfig reads the config file and applies global flag overrides.
// A missing file is only an error when --config was given explicitly; read
// only commands can run from flags and environment alone.
func loadConfig(cmd *cobra.Command) (*config.FillConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, printer.Error(
				"failed to load configuration",
				fmt.Sprintf("Error: %v", err),
				[]string{fmt.Sprintf("Check the configuration file:\n  %s", configPath)},
			)
		}

		cfg = &config.FillConfig{}
		if err := cfg.ApplyEnv(lookupEnv); err != nil {
			return nil, configError(err)
		}
	}

	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	return cfg, nil
}

func newHistoryClient(cfg *config.FillConfig) (*history.Client, error) {
	client, err := history.NewClient(history.Config{
		BaseURL:   cfg.APIURL,
		UserAgent: userAgent(),
	})
	if err != nil {
		return nil, configError(err)
	}
	return client, nil
}

func newHTTPClient(cfg *config.FillConfig) (*http.Client, error) {
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, configError(err)
	}
	return &http.Client{Timeout: timeout}, nil
}

func userAgent() string {
	if version == "" || version == "dev" {
		return history.DefaultUserAgent
	}
	return fmt.Sprintf("Fill/%s (Go CLI)", version)
}
