package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/shipit/internal/adapters/out/gitrepo"
	"github.com/bnema/shipit/internal/adapters/out/registry"
	"github.com/bnema/shipit/internal/adapters/out/ticketing"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
	"github.com/bnema/shipit/internal/usecase/gates"
	"github.com/bnema/shipit/pkg/bytesize"
	"github.com/bnema/shipit/pkg/duration"
	"github.com/bnema/shipit/pkg/validation"
)

// Environment variables holding credentials. They are never read from the
// config file.
const (
	EnvRegistryToken = "SHIPIT_REGISTRY_TOKEN"
	EnvTicketToken   = "SHIPIT_TICKET_TOKEN"
	EnvGitToken      = "SHIPIT_GIT_TOKEN"
)

// Config holds the application configuration.
type Config struct {
	Project struct {
		Name            string   `mapstructure:"name"`
		Workspace       string   `mapstructure:"workspace"`
		Manifest        string   `mapstructure:"manifest"`
		AllowedBranches []string `mapstructure:"allowed_branches"`
	} `mapstructure:"project"`

	Registry struct {
		Production registry.Endpoint `mapstructure:"production"`
		Staging    registry.Endpoint `mapstructure:"staging"`
		Timeout    string            `mapstructure:"timeout"` // e.g. "60s", "2m"
		Retry      struct {
			Attempts  int    `mapstructure:"attempts"`
			BaseDelay string `mapstructure:"base_delay"`
		} `mapstructure:"retry"`
	} `mapstructure:"registry"`

	Gates struct {
		CoverageThreshold float64            `mapstructure:"coverage_threshold"`
		Mode              string             `mapstructure:"mode"` // "fail-fast" or "continue"
		Battery           []gates.GateConfig `mapstructure:"battery"`
	} `mapstructure:"gates"`

	Build struct {
		Command         []string `mapstructure:"command"`
		OutputDir       string   `mapstructure:"output_dir"`
		MaxArtifactSize string   `mapstructure:"max_artifact_size"` // e.g. "100MB", empty disables
		VerifyArchives  bool     `mapstructure:"verify_archives"`
	} `mapstructure:"build"`

	Git struct {
		gitrepo.Config `mapstructure:",squash"`
		TagPrefix      string `mapstructure:"tag_prefix"`
	} `mapstructure:"git"`

	Ticketing ticketing.Config `mapstructure:"ticketing"`

	Incident struct {
		ETA     string `mapstructure:"eta"` // e.g. "1d", "4h"
		Contact string `mapstructure:"contact"`
	} `mapstructure:"incident"`

	Reports struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"reports"`

	Logging logging.Config `mapstructure:"logging"`

	Secrets Secrets `mapstructure:"-"`
}

// Secrets are the credentials read once at startup.
type Secrets struct {
	RegistryToken string
	TicketToken   string
	GitToken      string
}

// Settings are the parsed forms of the string valued options.
type Settings struct {
	RegistryTimeout time.Duration
	RetryBaseDelay  time.Duration
	MaxArtifactSize int64
	IncidentETA     time.Duration
	GateMode        domain.GateMode
}

// initConfig loads configuration from file, .env and environment.
func initConfig(configPath string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return Config{}, domain.Configuration("load config", err, "check the syntax of shipit.toml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, domain.Configuration("load config", fmt.Errorf("failed to unmarshal config: %w", err),
			"check the value types in shipit.toml")
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	cfg.Secrets = Secrets{
		RegistryToken: os.Getenv(EnvRegistryToken),
		TicketToken:   os.Getenv(EnvTicketToken),
		GitToken:      os.Getenv(EnvGitToken),
	}
	cfg.Git.Token = cfg.Secrets.GitToken

	return cfg, nil
}

// loadDotEnv exports the variables of a .env file. Variables already set
// in the environment win, a missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return domain.Configuration("load .env", err, "fix or remove "+path)
	}
	return nil
}

func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("project.workspace", ".")
	v.SetDefault("project.manifest", "pyproject.toml")
	v.SetDefault("project.allowed_branches", []string{"main", "master"})
	v.SetDefault("registry.production.index_url", "https://pypi.org")
	v.SetDefault("registry.production.upload_url", "https://upload.pypi.org/legacy/")
	v.SetDefault("registry.production.manage_url", "https://pypi.org/manage")
	v.SetDefault("registry.staging.index_url", "https://test.pypi.org")
	v.SetDefault("registry.staging.upload_url", "https://test.pypi.org/legacy/")
	v.SetDefault("registry.staging.manage_url", "https://test.pypi.org/manage")
	v.SetDefault("registry.timeout", "60s")
	v.SetDefault("registry.retry.attempts", 3)
	v.SetDefault("registry.retry.base_delay", "5s")
	v.SetDefault("gates.coverage_threshold", gates.DefaultCoverageThreshold)
	v.SetDefault("gates.mode", string(domain.FailFast))
	v.SetDefault("build.output_dir", "dist")
	v.SetDefault("build.max_artifact_size", "100MB")
	v.SetDefault("build.verify_archives", true)
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.tag_prefix", "v")
	v.SetDefault("ticketing.api_url", "https://api.github.com")
	v.SetDefault("ticketing.labels", []string{"rollback", "incident"})
	v.SetDefault("incident.eta", "1d")
	v.SetDefault("reports.dir", DefaultReportsDir)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHIPIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// normalize resolves paths against the workspace.
func (c *Config) normalize() error {
	workspace, err := filepath.Abs(c.Project.Workspace)
	if err != nil {
		return domain.Configuration("resolve workspace", err, "set project.workspace in shipit.toml")
	}
	c.Project.Workspace = workspace
	c.Project.Manifest = resolvePath(workspace, c.Project.Manifest)
	c.Reports.Dir = resolvePath(workspace, c.Reports.Dir)
	if c.Logging.File != "" {
		c.Logging.File = resolvePath(workspace, c.Logging.File)
	}
	return nil
}

// Parse validates and converts the string valued options.
func (c Config) Parse() (Settings, error) {
	var s Settings
	var err error

	if s.RegistryTimeout, err = duration.Parse(c.Registry.Timeout); err != nil {
		return s, invalid("registry.timeout", err)
	}
	if s.RetryBaseDelay, err = duration.Parse(c.Registry.Retry.BaseDelay); err != nil {
		return s, invalid("registry.retry.base_delay", err)
	}
	if c.Registry.Retry.Attempts < 1 {
		return s, invalid("registry.retry.attempts", fmt.Errorf("must be at least 1, got %d", c.Registry.Retry.Attempts))
	}
	if c.Build.MaxArtifactSize != "" {
		if s.MaxArtifactSize, err = bytesize.Parse(c.Build.MaxArtifactSize); err != nil {
			return s, invalid("build.max_artifact_size", err)
		}
	}
	if err := validation.ValidateSubdir(c.Build.OutputDir); err != nil {
		return s, invalid("build.output_dir", err)
	}
	if s.IncidentETA, err = duration.Parse(c.Incident.ETA); err != nil {
		return s, invalid("incident.eta", err)
	}

	// the prefix must yield valid tags
	if err := validation.ValidateTagName(c.Git.TagPrefix + "0.0.0"); err != nil {
		return s, invalid("git.tag_prefix", err)
	}

	switch domain.GateMode(strings.ToLower(c.Gates.Mode)) {
	case domain.FailFast, "":
		s.GateMode = domain.FailFast
	case domain.Continue:
		s.GateMode = domain.Continue
	default:
		return s, invalid("gates.mode", fmt.Errorf("unknown mode %q", c.Gates.Mode))
	}

	return s, nil
}

func invalid(key string, err error) error {
	return domain.Configuration("load config", fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err),
		"fix "+key+" in shipit.toml")
}
