// Package release implements the forward release workflow: version bump,
// quality gates, build, publish and tag.
package release

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
	"github.com/bnema/shipit/internal/usecase/gates"
)

// VersionResolver computes and persists the release version.
type VersionResolver interface {
	Next(ctx context.Context, kind domain.BumpKind) (current, next domain.Version, err error)
	Write(ctx context.Context, v domain.Version) error
}

// GateRunner runs the quality gates.
type GateRunner interface {
	Run(ctx context.Context, gates []gates.GateSpec, mode domain.GateMode) domain.GateReport
}

// Builder produces the distributions.
type Builder interface {
	Build(ctx context.Context, workspace string) ([]domain.BuildArtifact, error)
}

// Config holds the per-project release settings.
type Config struct {
	Package         string
	Workspace       string
	ManifestPath    string
	AllowedBranches []string
	TagPrefix       string
	Token           string
	Gates           []gates.GateSpec
	// GateMode applies when the request leaves the mode unset.
	GateMode domain.GateMode
}

// Service is the release orchestrator. It owns the record of the run it
// drives and never publishes unless gates passed and the build produced a
// source and a binary distribution.
type Service struct {
	versions  VersionResolver
	gates     GateRunner
	builder   Builder
	registry  out.PackageRegistry
	git       out.SourceControl
	confirmer out.Confirmer
	records   out.RecordStore
	cfg       Config
	now       func() time.Time
}

// NewService creates a release orchestrator.
func NewService(
	versions VersionResolver,
	gateRunner GateRunner,
	builder Builder,
	registry out.PackageRegistry,
	git out.SourceControl,
	confirmer out.Confirmer,
	records out.RecordStore,
	cfg Config,
) *Service {
	if cfg.TagPrefix == "" {
		cfg.TagPrefix = "v"
	}
	return &Service{
		versions:  versions,
		gates:     gateRunner,
		builder:   builder,
		registry:  registry,
		git:       git,
		confirmer: confirmer,
		records:   records,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) tagName(v domain.Version) string {
	return s.cfg.TagPrefix + v.String()
}

// Release runs one release. The returned record reflects the last state
// reached, also when an error is returned.
func (s *Service) Release(ctx context.Context, req domain.ReleaseRequest) (*domain.ReleaseRecord, error) {
	if req.Target == "" {
		req.Target = domain.Production
	}
	if req.Mode == "" {
		req.Mode = s.cfg.GateMode
	}
	if req.Mode == "" {
		req.Mode = domain.FailFast
	}
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "Release",
		logging.FieldPackage: s.cfg.Package,
		logging.FieldTarget:  string(req.Target),
		"dry_run":            req.DryRun,
	})

	rec := domain.NewReleaseRecord(uuid.NewString(), s.cfg.Package, req.Target, req.DryRun, s.now())

	current, next, err := s.versions.Next(ctx, req.Bump)
	if err != nil {
		return rec, err
	}
	rec.PreviousVersion = current
	rec.Version = next
	rec.TagName = s.tagName(next)
	ctx = logging.CtxWithFields(ctx, map[string]any{logging.FieldVersion: next.String()})
	log := logging.FromCtx(ctx)
	defer s.save(ctx, rec)

	if err := s.precheck(ctx, rec); err != nil {
		return rec, err
	}

	log.Info().Str("from", current.String()).Msg("starting release")

	if err := s.versions.Write(ctx, next); err != nil {
		return rec, domain.Validation("write manifest version", err, "check that the manifest is writable")
	}
	// the bump is undone unless the version reaches the registry
	keepBump := false
	defer func() {
		if keepBump {
			return
		}
		if err := s.versions.Write(context.WithoutCancel(ctx), current); err != nil {
			log.Error().Err(err).Msg("failed to restore manifest version")
		}
	}()

	if err := s.runGates(ctx, rec, req.Mode); err != nil {
		return rec, err
	}
	if err := s.build(ctx, rec); err != nil {
		return rec, err
	}

	// publish guard; no flag bypasses it
	if err := rec.ReadyToPublish(); err != nil {
		return rec, domain.NewError(domain.KindBuild, "check publish preconditions", err, "")
	}

	if req.DryRun {
		log.Info().Int("artifacts", len(rec.Artifacts)).Msg("dry run complete, nothing published")
		return rec, nil
	}

	ok, err := s.confirmer.Confirm(ctx,
		fmt.Sprintf("Publish %s %s to %s?", s.cfg.Package, next, req.Target),
		artifactSummary(rec.Artifacts))
	if err != nil {
		return rec, domain.NewError(domain.KindAborted, "confirm publish", err, "")
	}
	if !ok {
		log.Warn().Msg("publish declined by operator")
		return rec, domain.NewError(domain.KindAborted, "confirm publish", domain.ErrAborted,
			"re-run the release when ready, nothing was published")
	}

	if err := s.publish(ctx, rec); err != nil {
		return rec, err
	}
	keepBump = true
	s.verify(ctx, rec)

	if err := s.tag(ctx, rec); err != nil {
		return rec, err
	}

	log.Info().Str("tag", rec.TagName).Msg("release complete")
	return rec, nil
}

// precheck validates everything that can be validated before the first
// side effect.
func (s *Service) precheck(ctx context.Context, rec *domain.ReleaseRecord) error {
	log := logging.FromCtx(ctx)

	if !rec.DryRun && s.cfg.Token == "" {
		return domain.Configuration("load registry token", domain.ErrMissingToken,
			"export SHIPIT_REGISTRY_TOKEN and re-run")
	}

	branch, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return domain.Validation("read current branch", err, "check out a release branch")
	}
	rec.Branch = branch
	if len(s.cfg.AllowedBranches) > 0 && !slices.Contains(s.cfg.AllowedBranches, branch) {
		return domain.Validation("check branch",
			fmt.Errorf("%w: %s (allowed: %s)", domain.ErrBranchNotAllowed, branch, strings.Join(s.cfg.AllowedBranches, ", ")),
			fmt.Sprintf("git checkout %s", s.cfg.AllowedBranches[0]))
	}

	dirty, err := s.git.HasUncommittedChanges(ctx)
	if err != nil {
		return domain.Validation("check working tree", err, "")
	}
	if dirty {
		if !rec.DryRun {
			return domain.Validation("check working tree", domain.ErrDirtyWorkingTree, "commit or stash your changes, then re-run")
		}
		log.Warn().Msg("working tree has uncommitted changes")
	}

	commit, err := s.git.HeadCommit(ctx)
	if err != nil {
		return domain.Validation("read HEAD", err, "")
	}
	rec.GitCommit = commit

	exists, err := s.git.TagExists(ctx, rec.TagName)
	if err != nil {
		return domain.Validation("check tag", err, "")
	}
	if exists {
		return domain.Validation("check tag",
			fmt.Errorf("%w: %s", domain.ErrTagExists, rec.TagName),
			"bump to a version that has not been released yet")
	}
	return nil
}

func (s *Service) runGates(ctx context.Context, rec *domain.ReleaseRecord, mode domain.GateMode) error {
	if err := rec.Advance(domain.StateGatesRunning); err != nil {
		return err
	}
	rec.GateReport = s.gates.Run(ctx, s.cfg.Gates, mode)
	logging.FromCtx(ctx).Info().
		Strs("gates", rec.GateReport.Names()).
		Bool("passed", rec.GateReport.Passed()).
		Msg("quality gates finished")

	if !rec.GateReport.Passed() {
		cause := domain.ErrGateFailed
		hint := "fix the failing gate and re-run"
		if failed, ok := rec.GateReport.FirstFailure(); ok {
			cause = fmt.Errorf("%w: %s: %s", domain.ErrGateFailed, failed.Name, firstLine(failed.Detail))
			hint = fmt.Sprintf("fix the %s gate and re-run", failed.Name)
		} else if len(rec.GateReport) == 0 {
			cause = fmt.Errorf("%w: no gates configured", domain.ErrGateFailed)
			hint = "configure at least one gate in shipit.toml"
		}
		if err := rec.Fail(domain.StateGatesFailed, cause); err != nil {
			return err
		}
		return domain.NewError(domain.KindGate, "run quality gates", cause, hint)
	}
	return rec.Advance(domain.StateGatesPassed)
}

func (s *Service) build(ctx context.Context, rec *domain.ReleaseRecord) error {
	if err := rec.Advance(domain.StateBuilding); err != nil {
		return err
	}
	artifacts, err := s.builder.Build(ctx, s.cfg.Workspace)
	if err != nil {
		if ferr := rec.Fail(domain.StateBuildFailed, err); ferr != nil {
			return ferr
		}
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.NewError(domain.KindBuild, "build", err, "")
		}
		return err
	}
	rec.Artifacts = artifacts
	return rec.Advance(domain.StateBuilt)
}

func (s *Service) publish(ctx context.Context, rec *domain.ReleaseRecord) error {
	if err := rec.Advance(domain.StatePublishing); err != nil {
		return err
	}
	err := s.registry.Publish(ctx, rec.Target, s.cfg.Package, rec.Version, rec.Artifacts, s.cfg.Token)
	if err != nil {
		if ferr := rec.Fail(domain.StatePublishFailed, err); ferr != nil {
			return ferr
		}
		return domain.NewError(domain.KindPublish, "publish", err,
			fmt.Sprintf("check the registry, then re-run: shipit rollback %s if a partial upload is visible", rec.Version))
	}
	return rec.Advance(domain.StatePublished)
}

// verify reads the published version back. A mismatch is logged, the
// release stays published.
func (s *Service) verify(ctx context.Context, rec *domain.ReleaseRecord) {
	log := logging.FromCtx(ctx)
	meta, err := s.registry.QueryVersion(ctx, rec.Target, s.cfg.Package, rec.Version)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("could not verify published version")
	case meta == nil:
		log.Warn().Msg("registry does not list the published version yet")
	case !meta.HasKind(domain.SourceDist) || !meta.HasKind(domain.BinaryDist):
		log.Warn().Int("files", len(meta.Files)).Msg("registry lists an incomplete set of distributions")
	default:
		rec.Verified = true
		log.Info().Int("files", len(meta.Files)).Msg("published version verified")
	}
}

func (s *Service) tag(ctx context.Context, rec *domain.ReleaseRecord) error {
	if err := rec.Advance(domain.StateTagging); err != nil {
		return err
	}
	hint := fmt.Sprintf("the release is published; create the tag by hand: git tag -a %s -m %q && git push origin %s",
		rec.TagName, "Release "+rec.Version.String(), rec.TagName)

	fail := func(op string, err error) error {
		if ferr := rec.Fail(domain.StateTagFailed, err); ferr != nil {
			return ferr
		}
		return domain.NewError(domain.KindTag, op, err, hint)
	}

	if s.cfg.ManifestPath != "" {
		commit, err := s.git.CommitFiles(ctx, fmt.Sprintf("Release %s", rec.Version), s.cfg.ManifestPath)
		if err != nil {
			return fail("commit version bump", err)
		}
		rec.GitCommit = commit
	}
	if err := s.git.CreateTag(ctx, rec.TagName, fmt.Sprintf("Release %s", rec.Version)); err != nil {
		if !errors.Is(err, domain.ErrTagExists) {
			err = fmt.Errorf("%w: %w", domain.ErrTag, err)
		}
		return fail("create tag", err)
	}
	if err := s.git.PushTag(ctx, rec.TagName); err != nil {
		return fail("push tag", err)
	}
	return rec.Advance(domain.StateTagged)
}

// save persists the record. A failure here does not change the outcome of
// the run.
func (s *Service) save(ctx context.Context, rec *domain.ReleaseRecord) {
	rec.FinishedAt = s.now()
	path, err := s.records.SaveRelease(context.WithoutCancel(ctx), rec)
	if err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Msg("failed to save release record")
		return
	}
	logging.FromCtx(ctx).Debug().Str(logging.FieldPath, path).Msg("release record saved")
}

func artifactSummary(artifacts []domain.BuildArtifact) string {
	names := make([]string, len(artifacts))
	for i, a := range artifacts {
		names[i] = a.Filename()
	}
	return strings.Join(names, "\n")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
