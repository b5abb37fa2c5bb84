package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bnema/shipit/internal/adapters/in/cli"
	"github.com/bnema/shipit/internal/adapters/out/command"
	"github.com/bnema/shipit/internal/adapters/out/filesystem"
	"github.com/bnema/shipit/internal/adapters/out/gitrepo"
	"github.com/bnema/shipit/internal/adapters/out/manifest"
	"github.com/bnema/shipit/internal/adapters/out/registry"
	"github.com/bnema/shipit/internal/adapters/out/ticketing"
	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
	"github.com/bnema/shipit/internal/usecase/build"
	"github.com/bnema/shipit/internal/usecase/gates"
	"github.com/bnema/shipit/internal/usecase/incident"
	"github.com/bnema/shipit/internal/usecase/release"
	"github.com/bnema/shipit/internal/usecase/rollback"
	"github.com/bnema/shipit/internal/usecase/version"
	"github.com/bnema/shipit/pkg/validation"
	pkgversion "github.com/bnema/shipit/pkg/version"
)

// App holds the wired use cases and the resources they share.
type App struct {
	Config   Config
	Release  *release.Service
	Rollback *rollback.Service

	log    zerolog.Logger
	closer io.Closer
}

// Services builds the CLI services. It is the cli.Factory of the binaries.
func Services(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	a, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Release:  loggedRelease{svc: a.Release, log: a.log},
		Rollback: loggedRollback{svc: a.Rollback, log: a.log},
		Close:    a.Close,
	}, nil
}

// New loads the configuration and wires every component.
func New(ctx context.Context, opts cli.Options) (*App, error) {
	cfg, err := initConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	settings, err := cfg.Parse()
	if err != nil {
		return nil, err
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	log, closer, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return nil, domain.Configuration("init logger", err, "fix logging.file in shipit.toml")
	}
	ctx = logging.WithCtx(ctx, log)

	a, err := wire(ctx, cfg, settings, opts, stderr)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	a.log = log
	a.closer = closer
	return a, nil
}

func wire(ctx context.Context, cfg Config, settings Settings, opts cli.Options, stderr io.Writer) (*App, error) {
	log := logging.FromCtx(ctx)
	confirmer := opts.Confirmer

	if confirmer == nil {
		return nil, domain.Configuration("wire services", domain.ErrInvalidConfig, "a confirmer is required")
	}

	pyproject := manifest.NewPyProject(cfg.Project.Manifest)
	pkg, err := projectName(cfg, pyproject)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str(logging.FieldPackage, pkg).
		Str(logging.FieldPath, cfg.Project.Workspace).
		Msg("configuration loaded")

	// unbuffered so streamed tool output shows up as it is produced
	runnerOpts := []command.Option{command.WithEnv("PYTHONUNBUFFERED=1")}
	streaming := log.GetLevel() <= zerolog.DebugLevel
	if streaming {
		runnerOpts = append(runnerOpts, command.WithStream(stderr))
	}
	var runner out.CommandRunner = command.NewRunner(runnerOpts...)
	// a spinner would garble streamed output
	if opts.Activity != nil && !streaming {
		runner = opts.Activity(runner)
	}

	battery := cfg.Gates.Battery
	if len(battery) == 0 {
		battery = gates.DefaultBattery(cfg.Gates.CoverageThreshold)
	}
	gateSpecs, err := gates.FromConfig(battery, runner, cfg.Project.Workspace)
	if err != nil {
		return nil, err
	}

	buildCfg := build.DefaultConfig()
	if len(cfg.Build.Command) > 0 {
		buildCfg.Command = cfg.Build.Command
	}
	if cfg.Build.OutputDir != "" {
		buildCfg.OutputDir = cfg.Build.OutputDir
	}
	buildCfg.MaxArtifactSize = settings.MaxArtifactSize
	buildCfg.VerifyArchives = cfg.Build.VerifyArchives

	registryClient := registry.NewClient(cfg.Registry.Production, cfg.Registry.Staging,
		registry.WithTimeout(settings.RegistryTimeout),
		registry.WithRetry(cfg.Registry.Retry.Attempts, settings.RetryBaseDelay),
		registry.WithUserAgent("shipit/"+pkgversion.Version()),
	)

	repo, err := gitrepo.Open(cfg.Project.Workspace, cfg.Git.Config)
	if err != nil {
		return nil, err
	}

	store, err := filesystem.NewStore(cfg.Reports.Dir)
	if err != nil {
		return nil, domain.Configuration("open reports directory", err, "check reports.dir in shipit.toml")
	}

	reporter, err := incident.NewReporter(incident.Config{
		ETA:     settings.IncidentETA,
		Contact: cfg.Incident.Contact,
		Labels:  cfg.Ticketing.Labels,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Secrets.TicketToken == "" {
		log.Debug().Msg(EnvTicketToken + " not set, incident issues will not be filed")
	}
	tracker := ticketing.NewClient(cfg.Ticketing, cfg.Secrets.TicketToken)

	versions := version.NewService(pyproject)

	releaseSvc := release.NewService(versions, gates.NewRunner(), build.NewBuilder(runner, buildCfg),
		registryClient, repo, confirmer, store, release.Config{
			Package:         pkg,
			Workspace:       cfg.Project.Workspace,
			ManifestPath:    cfg.Project.Manifest,
			AllowedBranches: cfg.Project.AllowedBranches,
			TagPrefix:       cfg.Git.TagPrefix,
			Token:           cfg.Secrets.RegistryToken,
			Gates:           gateSpecs,
			GateMode:        settings.GateMode,
		})

	rollbackSvc := rollback.NewService(versions, registryClient, repo, tracker, reporter, store, store, confirmer,
		rollback.Config{
			Package: pkg,
			Target:  domain.Production,
			Token:   cfg.Secrets.RegistryToken,
		})

	return &App{Config: cfg, Release: releaseSvc, Rollback: rollbackSvc}, nil
}

// projectName returns the configured project name, falling back to the
// manifest's [project] name.
func projectName(cfg Config, pyproject *manifest.PyProject) (string, error) {
	name := cfg.Project.Name
	if name == "" {
		var err error
		if name, err = pyproject.ReadName(); err != nil {
			return "", domain.Configuration("read project name", err,
				"set project.name in shipit.toml or [project] name in "+pyproject.Path())
		}
	}
	if err := validation.ValidateProjectName(name); err != nil {
		return "", domain.Configuration("validate project name", err, "fix project.name in shipit.toml")
	}
	return validation.NormalizeProjectName(name), nil
}

// Close releases the log file.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// loggedRelease and loggedRollback put the process logger into the context
// of every call.
type loggedRelease struct {
	svc *release.Service
	log zerolog.Logger
}

func (s loggedRelease) Release(ctx context.Context, req domain.ReleaseRequest) (*domain.ReleaseRecord, error) {
	return s.svc.Release(logging.WithCtx(ctx, s.log), req)
}

type loggedRollback struct {
	svc *rollback.Service
	log zerolog.Logger
}

func (s loggedRollback) Rollback(ctx context.Context, req domain.RollbackRequest) (*domain.RollbackRecord, error) {
	return s.svc.Rollback(logging.WithCtx(ctx, s.log), req)
}

func (s loggedRollback) List(ctx context.Context) (domain.DeployedVersionIndex, error) {
	return s.svc.List(logging.WithCtx(ctx, s.log))
}
