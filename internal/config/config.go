package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/fill/internal/packager"
	"github.com/dyluth/fill/internal/publish"
	"github.com/dyluth/fill/internal/timespec"
	"github.com/dyluth/fill/pkg/fill"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "fill.yml"

// Environment variables consulted for values the file leaves unset.
const (
	EnvAPIURL      = "FILL_API_URL"
	EnvAPIToken    = "FILL_API_KEY"
	EnvBuildNumber = "BUILD_NUMBER"
)

// FillConfig represents the top-level fill.yml configuration
type FillConfig struct {
	APIURL   string          `yaml:"api_url"`
	APIToken string          `yaml:"api_token,omitempty"` // Prefer FILL_API_KEY over committing a token
	Project  string          `yaml:"project"`
	Family   string          `yaml:"family"`
	Version  string          `yaml:"version"`
	Build    BuildConfig     `yaml:"build"`
	Announce *AnnounceConfig `yaml:"announce,omitempty"`
	Timeout  string          `yaml:"timeout,omitempty"` // Go duration, per request (default 5m)
}

// BuildConfig describes the build being published
type BuildConfig struct {
	ID        *int                      `yaml:"id,omitempty"`        // Defaults to BUILD_NUMBER
	Channel   string                    `yaml:"channel,omitempty"`   // Default: STABLE
	Timestamp string                    `yaml:"timestamp,omitempty"` // RFC3339 or duration ago, default: now
	Downloads map[string]DownloadConfig `yaml:"downloads"`
}

// DownloadConfig maps one logical artifact to a file on disk.
// Name is a text/template over .Project, .Family, .Version and .Build giving
// the uploaded file name; empty means the file's base name.
type DownloadConfig struct {
	File string `yaml:"file"`
	Name string `yaml:"name,omitempty"`
}

// AnnounceConfig enables build announcements over Redis
type AnnounceConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// NameData is the data a download name template is executed with.
type NameData struct {
	Project string
	Family  string
	Version string
	Build   int
}

// Load reads fill.yml from the specified path and fills unset values from
// the environment. It does not validate: callers apply flag overrides first.
func Load(path string) (*FillConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config FillConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	// Relative artifact paths are relative to the config file
	config.resolvePaths(filepath.Dir(path))

	return &config, nil
}

// ApplyEnv fills values the file left unset from environment variables.
func (c *FillConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && c.APIURL == "" {
		c.APIURL = v
	}
	if v, ok := lookup(EnvAPIToken); ok && c.APIToken == "" {
		c.APIToken = v
	}
	if v, ok := lookup(EnvBuildNumber); ok && v != "" && c.Build.ID == nil {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &fill.Error{
				Kind:  fill.KindConfigurationInvalid,
				Field: EnvBuildNumber,
				Err:   fmt.Errorf("not an integer: %q", v),
			}
		}
		c.Build.ID = &id
	}
	return nil
}

func (c *FillConfig) resolvePaths(base string) {
	for key, d := range c.Build.Downloads {
		if d.File != "" && !filepath.IsAbs(d.File) {
			d.File = filepath.Join(base, d.File)
			c.Build.Downloads[key] = d
		}
	}
}

// Require checks that each named top-level field is set, in the order given.
// Known names: api_url, api_token, project, family, version, build.id.
func (c *FillConfig) Require(fields ...string) error {
	for _, field := range fields {
		var set bool
		switch field {
		case "api_url":
			set = c.APIURL != ""
		case "api_token":
			set = strings.TrimSpace(c.APIToken) != ""
		case "project":
			set = c.Project != ""
		case "family":
			set = c.Family != ""
		case "version":
			set = c.Version != ""
		case "build.id":
			set = c.Build.ID != nil
		default:
			panic(fmt.Sprintf("config: unknown field %q", field))
		}
		if !set {
			return fill.MissingField(field)
		}
	}
	return nil
}

// Validate performs strict validation of everything a publish needs.
// The token is checked first so a missing credential is always the error
// reported, whatever else is wrong.
func (c *FillConfig) Validate() error {
	if err := c.Require("api_token", "api_url", "project", "family", "version", "build.id"); err != nil {
		return err
	}

	if *c.Build.ID < 0 {
		return invalid("build.id", fmt.Errorf("must be >= 0, got %d", *c.Build.ID))
	}

	if _, err := fill.ParseBuildChannel(c.Build.Channel); err != nil {
		return invalid("build.channel", err)
	}

	if c.Build.Timestamp != "" {
		if _, err := timespec.Parse(c.Build.Timestamp, time.Now()); err != nil {
			return invalid("build.timestamp", err)
		}
	}

	if _, err := c.RequestTimeout(); err != nil {
		return err
	}

	if len(c.Build.Downloads) == 0 {
		return invalid("build.downloads", fmt.Errorf("no downloads defined"))
	}
	for _, key := range c.DownloadKeys() {
		d := c.Build.Downloads[key]
		if d.File == "" {
			return fill.MissingField(fmt.Sprintf("build.downloads.%s.file", key))
		}
		if _, err := parseName(key, d.Name); err != nil {
			return err
		}
	}

	if c.Announce != nil && c.Announce.RedisURL == "" {
		return fill.MissingField("announce.redis_url")
	}

	return nil
}

// RequestTimeout returns the configured per-request timeout, or
// publish.DefaultTimeout when unset.
func (c *FillConfig) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return publish.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, invalid("timeout", err)
	}
	if d <= 0 {
		return 0, invalid("timeout", fmt.Errorf("must be positive, got %s", c.Timeout))
	}
	return d, nil
}

// DownloadKeys returns the download keys in the order artifacts are uploaded.
func (c *FillConfig) DownloadKeys() []string {
	keys := make([]string, 0, len(c.Build.Downloads))
	for key := range c.Build.Downloads {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Artifacts resolves every download to the file it uploads and the name it
// is uploaded as.
func (c *FillConfig) Artifacts() ([]packager.Artifact, error) {
	data := NameData{Project: c.Project, Family: c.Family, Version: c.Version}
	if c.Build.ID != nil {
		data.Build = *c.Build.ID
	}

	artifacts := make([]packager.Artifact, 0, len(c.Build.Downloads))
	for _, key := range c.DownloadKeys() {
		d := c.Build.Downloads[key]

		name := filepath.Base(d.File)
		if d.Name != "" {
			tmpl, err := parseName(key, d.Name)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return nil, invalid(fmt.Sprintf("build.downloads.%s.name", key), err)
			}
			name = buf.String()
		}

		artifacts = append(artifacts, packager.Artifact{Key: key, Path: d.File, FileName: name})
	}
	return artifacts, nil
}

// Request builds the publish request for this configuration.
// Call Validate first.
func (c *FillConfig) Request() (publish.Request, error) {
	artifacts, err := c.Artifacts()
	if err != nil {
		return publish.Request{}, err
	}

	channel, err := fill.ParseBuildChannel(c.Build.Channel)
	if err != nil {
		return publish.Request{}, invalid("build.channel", err)
	}

	var buildTime time.Time
	if c.Build.Timestamp != "" {
		buildTime, err = timespec.Parse(c.Build.Timestamp, time.Now())
		if err != nil {
			return publish.Request{}, invalid("build.timestamp", err)
		}
	}

	req := publish.Request{
		Project:   c.Project,
		Family:    c.Family,
		Version:   c.Version,
		Time:      buildTime,
		Channel:   channel,
		Artifacts: artifacts,
		Token:     c.APIToken,
	}
	if c.Build.ID != nil {
		req.Build = *c.Build.ID
	}
	return req, nil
}

func parseName(key, name string) (*template.Template, error) {
	tmpl, err := template.New(key).Option("missingkey=error").Parse(name)
	if err != nil {
		return nil, invalid(fmt.Sprintf("build.downloads.%s.name", key), err)
	}
	return tmpl, nil
}

func invalid(field string, err error) error {
	return &fill.Error{Kind: fill.KindConfigurationInvalid, Field: field, Err: err}
}
