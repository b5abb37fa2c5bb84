package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/pkg/bytesize"
	"github.com/bnema/shipit/pkg/duration"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipit.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	v := viper.New()
	require.NoError(t, loadConfig(v, path))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "pyproject.toml", cfg.Project.Manifest)
	assert.Equal(t, []string{"main", "master"}, cfg.Project.AllowedBranches)
	assert.Equal(t, "https://test.pypi.org", cfg.Registry.Staging.IndexURL)
	assert.Equal(t, 3, cfg.Registry.Retry.Attempts)
	assert.Equal(t, 85.0, cfg.Gates.CoverageThreshold)
	assert.Equal(t, "origin", cfg.Git.Remote)
	assert.Equal(t, "v", cfg.Git.TagPrefix)
	assert.Equal(t, DefaultReportsDir, cfg.Reports.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Gates.Battery)
	assert.True(t, cfg.Build.VerifyArchives)

	settings, err := cfg.Parse()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, settings.RegistryTimeout)
	assert.Equal(t, 5*time.Second, settings.RetryBaseDelay)
	assert.Equal(t, 100*bytesize.MB, settings.MaxArtifactSize)
	assert.Equal(t, duration.Day, settings.IncidentETA)
	assert.Equal(t, domain.FailFast, settings.GateMode)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
[project]
name = "demo"
allowed_branches = ["release"]

[registry.staging]
index_url = "http://localhost:8080"

[registry.retry]
attempts = 5
base_delay = "250ms"

[gates]
mode = "continue"

[[gates.battery]]
name = "tests"
command = ["pytest", "--cov"]
required = true
metric_pattern = 'TOTAL.*?(\d+)%'
threshold = 90

[[gates.battery]]
name = "lint"
command = ["ruff", "check", "."]
required = true

[git]
remote = "upstream"
author_name = "Release Bot"
tag_prefix = "release-"

[incident]
eta = "4h"
contact = "oncall@example.com"
`)

	v := viper.New()
	require.NoError(t, loadConfig(v, path))
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, []string{"release"}, cfg.Project.AllowedBranches)
	assert.Equal(t, "http://localhost:8080", cfg.Registry.Staging.IndexURL)
	assert.Equal(t, "https://pypi.org", cfg.Registry.Production.IndexURL)
	assert.Equal(t, "upstream", cfg.Git.Remote)
	assert.Equal(t, "Release Bot", cfg.Git.AuthorName)
	assert.Equal(t, "release-", cfg.Git.TagPrefix)
	assert.Equal(t, "oncall@example.com", cfg.Incident.Contact)

	require.Len(t, cfg.Gates.Battery, 2)
	assert.Equal(t, "tests", cfg.Gates.Battery[0].Name)
	assert.Equal(t, []string{"pytest", "--cov"}, cfg.Gates.Battery[0].Command)
	assert.True(t, cfg.Gates.Battery[0].Required)
	assert.Equal(t, 90.0, cfg.Gates.Battery[0].Threshold)
	assert.Equal(t, `TOTAL.*?(\d+)%`, cfg.Gates.Battery[0].MetricPattern)

	settings, err := cfg.Parse()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, settings.RetryBaseDelay)
	assert.Equal(t, 4*time.Hour, settings.IncidentETA)
	assert.Equal(t, domain.Continue, settings.GateMode)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SHIPIT_GATES_MODE", "continue")
	t.Setenv("SHIPIT_PROJECT_NAME", "from-env")
	path := writeConfig(t, "[project]\nname = \"demo\"\n")

	v := viper.New()
	require.NoError(t, loadConfig(v, path))
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "from-env", cfg.Project.Name)
	assert.Equal(t, "continue", cfg.Gates.Mode)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := writeConfig(t, "[project\nname = ")

	v := viper.New()
	assert.Error(t, loadConfig(v, path))
}

func TestInitConfig_SecretsAndPaths(t *testing.T) {
	workspace := t.TempDir()
	t.Setenv(EnvRegistryToken, "pypi-token")
	t.Setenv(EnvGitToken, "git-token")
	t.Setenv(EnvTicketToken, "")
	path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n[logging]\nfile = \"logs/shipit.log\"\n")

	cfg, err := initConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "pypi-token", cfg.Secrets.RegistryToken)
	assert.Empty(t, cfg.Secrets.TicketToken)
	assert.Equal(t, "git-token", cfg.Git.Token)
	assert.Equal(t, filepath.Join(workspace, "pyproject.toml"), cfg.Project.Manifest)
	assert.Equal(t, filepath.Join(workspace, DefaultReportsDir), cfg.Reports.Dir)
	assert.Equal(t, filepath.Join(workspace, "logs", "shipit.log"), cfg.Logging.File)
}

func TestConfigParse_Invalid(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.Registry.Timeout = "60s"
		cfg.Registry.Retry.Attempts = 3
		cfg.Registry.Retry.BaseDelay = "5s"
		cfg.Incident.ETA = "1d"
		cfg.Git.TagPrefix = "v"
		cfg.Build.OutputDir = "dist"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{name: "timeout", mutate: func(c *Config) { c.Registry.Timeout = "soon" }, key: "registry.timeout"},
		{name: "retry delay", mutate: func(c *Config) { c.Registry.Retry.BaseDelay = "-1s" }, key: "registry.retry.base_delay"},
		{name: "retry attempts", mutate: func(c *Config) { c.Registry.Retry.Attempts = 0 }, key: "registry.retry.attempts"},
		{name: "artifact size", mutate: func(c *Config) { c.Build.MaxArtifactSize = "huge" }, key: "build.max_artifact_size"},
		{name: "output dir is workspace", mutate: func(c *Config) { c.Build.OutputDir = "." }, key: "build.output_dir"},
		{name: "output dir escapes", mutate: func(c *Config) { c.Build.OutputDir = "../dist" }, key: "build.output_dir"},
		{name: "output dir absolute", mutate: func(c *Config) { c.Build.OutputDir = "/var/dist" }, key: "build.output_dir"},
		{name: "output dir empty", mutate: func(c *Config) { c.Build.OutputDir = "" }, key: "build.output_dir"},
		{name: "eta", mutate: func(c *Config) { c.Incident.ETA = "" }, key: "incident.eta"},
		{name: "tag prefix", mutate: func(c *Config) { c.Git.TagPrefix = "bad prefix " }, key: "git.tag_prefix"},
		{name: "gate mode", mutate: func(c *Config) { c.Gates.Mode = "yolo" }, key: "gates.mode"},
	}

	_, err := valid().Parse()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			_, err := cfg.Parse()

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
			assert.Contains(t, domain.HintOf(err), tt.key)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHIPIT_DOTENV_PROBE=from-file\n"), 0600))
	t.Setenv("SHIPIT_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("SHIPIT_DOTENV_PROBE"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SHIPIT_DOTENV_PROBE"))
}
