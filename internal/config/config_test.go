package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/fill/internal/publish"
	"github.com/dyluth/fill/pkg/fill"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func intPtr(i int) *int { return &i }

func validConfig() *FillConfig {
	return &FillConfig{
		APIURL:   "https://fill.papermc.io",
		APIToken: "secret",
		Project:  "paper",
		Family:   "1.21",
		Version:  "1.21.1",
		Build: BuildConfig{
			ID: intPtr(42),
			Downloads: map[string]DownloadConfig{
				"server:default": {File: "/build/paper.jar", Name: "{{.Project}}-{{.Version}}-{{.Build}}.jar"},
			},
		},
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvBuildNumber, "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fill.yml")

	validYAML := `api_url: "https://fill.papermc.io"
project: paper
family: "1.21"
version: "1.21.1"
build:
  id: 42
  channel: beta
  timestamp: "2024-06-13T17:00:00Z"
  downloads:
    server:default:
      file: build/libs/paper.jar
      name: "{{.Project}}-{{.Version}}-{{.Build}}.jar"
    mojang-mappings:
      file: /abs/mappings.txt
announce:
  redis_url: "redis://localhost:6379"
timeout: 30s
`
	err := os.WriteFile(configPath, []byte(validYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://fill.papermc.io", config.APIURL)
	assert.Equal(t, "paper", config.Project)
	assert.Equal(t, "1.21", config.Family)
	assert.Equal(t, "1.21.1", config.Version)
	require.NotNil(t, config.Build.ID)
	assert.Equal(t, 42, *config.Build.ID)
	assert.Equal(t, "beta", config.Build.Channel)
	assert.Len(t, config.Build.Downloads, 2)
	require.NotNil(t, config.Announce)
	assert.Equal(t, "redis://localhost:6379", config.Announce.RedisURL)

	// Relative paths resolve against the config file's directory
	assert.Equal(t, filepath.Join(tmpDir, "build/libs/paper.jar"), config.Build.Downloads["server:default"].File)
	assert.Equal(t, "/abs/mappings.txt", config.Build.Downloads["mojang-mappings"].File)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/fill.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fill.yml")

	invalidYAML := `project: paper
build:
  - this is invalid
    yaml syntax
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://env.example")
	t.Setenv(EnvAPIToken, "env-token")
	t.Setenv(EnvBuildNumber, "7")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fill.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("project: paper\n"), 0644))

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", config.APIURL)
	assert.Equal(t, "env-token", config.APIToken)
	require.NotNil(t, config.Build.ID)
	assert.Equal(t, 7, *config.Build.ID)
}

func TestApplyEnv(t *testing.T) {
	t.Run("file values win", func(t *testing.T) {
		config := validConfig()
		err := config.ApplyEnv(envOf(map[string]string{
			EnvAPIURL:      "https://env.example",
			EnvAPIToken:    "env-token",
			EnvBuildNumber: "7",
		}))
		require.NoError(t, err)
		assert.Equal(t, "https://fill.papermc.io", config.APIURL)
		assert.Equal(t, "secret", config.APIToken)
		assert.Equal(t, 42, *config.Build.ID)
	})

	t.Run("nothing set", func(t *testing.T) {
		config := &FillConfig{}
		require.NoError(t, config.ApplyEnv(noEnv))
		assert.Empty(t, config.APIURL)
		assert.Nil(t, config.Build.ID)
	})

	t.Run("invalid build number", func(t *testing.T) {
		config := &FillConfig{}
		err := config.ApplyEnv(envOf(map[string]string{EnvBuildNumber: "forty-two"}))
		require.Error(t, err)
		assert.True(t, fill.IsKind(err, fill.KindConfigurationInvalid))
		assert.Contains(t, err.Error(), EnvBuildNumber)
	})
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *FillConfig)
		field  string
	}{
		{"missing token", func(c *FillConfig) { c.APIToken = "" }, "api_token"},
		{"blank token", func(c *FillConfig) { c.APIToken = "   " }, "api_token"},
		{"missing api url", func(c *FillConfig) { c.APIURL = "" }, "api_url"},
		{"missing project", func(c *FillConfig) { c.Project = "" }, "project"},
		{"missing family", func(c *FillConfig) { c.Family = "" }, "family"},
		{"missing version", func(c *FillConfig) { c.Version = "" }, "version"},
		{"missing build id", func(c *FillConfig) { c.Build.ID = nil }, "build.id"},
		{"no downloads", func(c *FillConfig) { c.Build.Downloads = nil }, "build.downloads"},
		{"download without file", func(c *FillConfig) {
			c.Build.Downloads["server:default"] = DownloadConfig{Name: "x.jar"}
		}, "build.downloads.server:default.file"},
		{"announce without url", func(c *FillConfig) { c.Announce = &AnnounceConfig{} }, "announce.redis_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, fill.IsKind(err, fill.KindConfigurationInvalid))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_TokenReportedFirst(t *testing.T) {
	config := &FillConfig{}

	err := config.Validate()
	require.Error(t, err)

	var fe *fill.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "api_token", fe.Field)
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *FillConfig)
		field  string
	}{
		{"negative build", func(c *FillConfig) { c.Build.ID = intPtr(-1) }, "build.id"},
		{"unknown channel", func(c *FillConfig) { c.Build.Channel = "nightly" }, "build.channel"},
		{"bad timestamp", func(c *FillConfig) { c.Build.Timestamp = "13/06/2024" }, "build.timestamp"},
		{"bad timeout", func(c *FillConfig) { c.Timeout = "soon" }, "timeout"},
		{"zero timeout", func(c *FillConfig) { c.Timeout = "0s" }, "timeout"},
		{"bad name template", func(c *FillConfig) {
			c.Build.Downloads["server:default"] = DownloadConfig{File: "/a.jar", Name: "{{.Project"}
		}, "build.downloads.server:default.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, fill.IsKind(err, fill.KindConfigurationInvalid))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestRequire(t *testing.T) {
	config := &FillConfig{APIURL: "https://fill.papermc.io", Project: "paper"}

	assert.NoError(t, config.Require("api_url", "project"))

	err := config.Require("api_url", "project", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")

	assert.Panics(t, func() { _ = config.Require("nope") })
}

func TestRequestTimeout(t *testing.T) {
	config := validConfig()

	d, err := config.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, publish.DefaultTimeout, d)

	config.Timeout = "90s"
	d, err = config.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestArtifacts(t *testing.T) {
	t.Run("sorted by key with resolved names", func(t *testing.T) {
		config := validConfig()
		config.Build.Downloads["mojang-mappings"] = DownloadConfig{File: "/build/mappings.txt"}
		config.Build.Downloads["api"] = DownloadConfig{File: "/build/api.jar", Name: "{{.Project}}-api-{{.Family}}.jar"}

		artifacts, err := config.Artifacts()
		require.NoError(t, err)
		require.Len(t, artifacts, 3)

		assert.Equal(t, "api", artifacts[0].Key)
		assert.Equal(t, "paper-api-1.21.jar", artifacts[0].FileName)
		assert.Equal(t, "/build/api.jar", artifacts[0].Path)

		assert.Equal(t, "mojang-mappings", artifacts[1].Key)
		assert.Equal(t, "mappings.txt", artifacts[1].FileName)

		assert.Equal(t, "server:default", artifacts[2].Key)
		assert.Equal(t, "paper-1.21.1-42.jar", artifacts[2].FileName)
	})

	t.Run("unknown template field", func(t *testing.T) {
		config := validConfig()
		config.Build.Downloads["server:default"] = DownloadConfig{File: "/a.jar", Name: "{{.Commit}}.jar"}

		_, err := config.Artifacts()
		require.Error(t, err)
		assert.True(t, fill.IsKind(err, fill.KindConfigurationInvalid))
	})
}

func TestRequest(t *testing.T) {
	t.Run("maps every field", func(t *testing.T) {
		config := validConfig()
		config.Build.Channel = "recommended"
		config.Build.Timestamp = "2024-06-13T17:00:00Z"

		req, err := config.Request()
		require.NoError(t, err)
		assert.Equal(t, "paper", req.Project)
		assert.Equal(t, "1.21", req.Family)
		assert.Equal(t, "1.21.1", req.Version)
		assert.Equal(t, 42, req.Build)
		assert.Equal(t, "secret", req.Token)
		assert.Equal(t, fill.ChannelRecommended, req.Channel)
		assert.True(t, time.Date(2024, 6, 13, 17, 0, 0, 0, time.UTC).Equal(req.Time))
		require.Len(t, req.Artifacts, 1)
		assert.Equal(t, "paper-1.21.1-42.jar", req.Artifacts[0].FileName)

		assert.NoError(t, req.Validate())
	})

	t.Run("defaults", func(t *testing.T) {
		req, err := validConfig().Request()
		require.NoError(t, err)
		assert.Equal(t, fill.ChannelStable, req.Channel)
		assert.True(t, req.Time.IsZero())
	})
}
