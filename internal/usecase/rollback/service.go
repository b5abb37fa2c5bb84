// Package rollback implements the reverse workflow after a bad release:
// withdraw the version, mark the history and tell people about it.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
	"github.com/bnema/shipit/internal/usecase/incident"
)

// tagSuffixLayout disambiguates a rollback tag that already exists.
const tagSuffixLayout = "20060102150405"

// VersionResolver picks the version to roll back to.
type VersionResolver interface {
	PreviousStableFrom(ctx context.Context, from domain.Version, index domain.DeployedVersionIndex) (domain.Version, error)
}

// Reporter renders the incident documents.
type Reporter interface {
	IssueBody(rec *domain.RollbackRecord, at time.Time) (domain.Issue, error)
	UserNotice(rec *domain.RollbackRecord, at time.Time) (string, error)
	PostIncidentReport(rec *domain.RollbackRecord, at time.Time) (string, error)
}

// Config holds the per-project rollback settings.
type Config struct {
	Package string
	// Target is the registry the version is withdrawn from.
	Target domain.PublishTarget
	Token  string
}

// Service is the rollback orchestrator.
type Service struct {
	versions  VersionResolver
	registry  out.PackageRegistry
	git       out.SourceControl
	ticketing out.Ticketing
	reporter  Reporter
	reports   out.ReportWriter
	records   out.RecordStore
	confirmer out.Confirmer
	cfg       Config
	now       func() time.Time
}

// NewService creates a rollback orchestrator.
func NewService(
	versions VersionResolver,
	registry out.PackageRegistry,
	git out.SourceControl,
	ticketing out.Ticketing,
	reporter Reporter,
	reports out.ReportWriter,
	records out.RecordStore,
	confirmer out.Confirmer,
	cfg Config,
) *Service {
	if cfg.Target == "" {
		cfg.Target = domain.Production
	}
	return &Service{
		versions:  versions,
		registry:  registry,
		git:       git,
		ticketing: ticketing,
		reporter:  reporter,
		reports:   reports,
		records:   records,
		confirmer: confirmer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// List returns the versions the registry currently serves.
func (s *Service) List(ctx context.Context) (domain.DeployedVersionIndex, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "ListVersions",
		logging.FieldPackage: s.cfg.Package,
	})
	idx, err := s.registry.ListVersions(ctx, s.cfg.Target, s.cfg.Package)
	if err != nil {
		return domain.DeployedVersionIndex{}, indexError(err)
	}
	return idx, nil
}

func indexError(err error) error {
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		err = fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return domain.NewError(domain.KindNetwork, "list published versions", err,
		"retry later or pass the target version explicitly: shipit rollback <from> <to>")
}

// Rollback withdraws req.From. Errors returned before confirmation are
// fatal and leave no side effect. After confirmation every step is
// attempted, failures are recorded in the record and the run still
// completes.
func (s *Service) Rollback(ctx context.Context, req domain.RollbackRequest) (*domain.RollbackRecord, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "Rollback",
		logging.FieldPackage: s.cfg.Package,
		logging.FieldTarget:  string(s.cfg.Target),
		"from":               req.From.String(),
	})
	log := logging.FromCtx(ctx)

	if s.cfg.Token == "" {
		return nil, domain.Configuration("load registry token", domain.ErrMissingToken,
			"export SHIPIT_REGISTRY_TOKEN and re-run")
	}
	if req.From.IsZero() {
		return nil, domain.Validation("parse arguments", domain.ErrInvalidVersion, "shipit rollback <from-version> [<to-version>]")
	}

	to, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	rec := domain.NewRollbackRecord(uuid.NewString(), s.cfg.Package, req.From, to, req.Reason, s.now())
	rec.Operator = req.Operator
	ctx = logging.CtxWithFields(ctx, map[string]any{"to": to.String(), "rollback_id": rec.ID})
	log = logging.FromCtx(ctx)

	if err := rec.Advance(domain.RollbackConfirming); err != nil {
		return rec, err
	}
	ok, err := s.confirmer.Confirm(ctx,
		fmt.Sprintf("Roll back %s %s to %s?", s.cfg.Package, req.From, to),
		fmt.Sprintf("%s will be removed from the %s registry, tagged %s and an incident issue filed.",
			req.From, s.cfg.Target, rollbackTagBase(req.From)))
	if err != nil || !ok {
		if aerr := rec.Advance(domain.RollbackAborted); aerr != nil {
			return rec, aerr
		}
		if err == nil {
			err = domain.ErrAborted
		}
		log.Warn().Err(err).Msg("rollback aborted at confirmation")
		return rec, domain.NewError(domain.KindAborted, "confirm rollback", err, "nothing was changed")
	}
	if err := rec.Advance(domain.RollbackConfirmed); err != nil {
		return rec, err
	}

	if err := s.deregister(ctx, rec); err != nil {
		return rec, err
	}
	if err := s.tag(ctx, rec); err != nil {
		return rec, err
	}
	if err := s.report(ctx, rec); err != nil {
		return rec, err
	}

	if path, err := s.records.SaveRollback(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn().Err(err).Msg("failed to save rollback record")
	} else {
		log.Debug().Str(logging.FieldPath, path).Msg("rollback record saved")
	}

	if rec.Partial() {
		log.Warn().Int("manual_steps", len(rec.ManualSteps())).Msg("rollback completed with manual follow-ups")
	} else {
		log.Info().Msg("rollback complete")
	}
	return rec, nil
}

func (s *Service) resolveTarget(ctx context.Context, req domain.RollbackRequest) (domain.Version, error) {
	if req.To != nil {
		if !req.To.Less(req.From) {
			return domain.Version{}, domain.Validation("check target version",
				fmt.Errorf("%w: %s is not below %s", domain.ErrVersionNotNewer, req.To, req.From),
				"pass a target version older than the one rolled back")
		}
		return *req.To, nil
	}

	idx, err := s.registry.ListVersions(ctx, s.cfg.Target, s.cfg.Package)
	if err != nil {
		return domain.Version{}, indexError(err)
	}
	if !idx.Contains(req.From) {
		logging.FromCtx(ctx).Warn().Msg("version to roll back is not listed by the registry")
	}
	return s.versions.PreviousStableFrom(ctx, req.From, idx)
}

func (s *Service) deregister(ctx context.Context, rec *domain.RollbackRecord) error {
	log := logging.FromCtx(ctx)
	if err := rec.Advance(domain.RollbackDeregistering); err != nil {
		return err
	}
	err := s.registry.DeleteVersion(ctx, s.cfg.Target, s.cfg.Package, rec.FromVersion, s.cfg.Token)
	if err != nil {
		log.Error().Err(err).Msg("failed to remove version from registry")
		rec.RecordStepError(domain.StepDeregister, err)
		return rec.Advance(domain.RollbackDeregisterFailed)
	}
	rec.RegistryRemoved = true
	log.Info().Msg("version removed from registry")
	return rec.Advance(domain.RollbackDeregistered)
}

func rollbackTagBase(from domain.Version) string {
	return "rollback-" + from.Tag()
}

// tagName returns rollback-v<from>, or a timestamped variant when a previous
// run already created that tag.
func (s *Service) tagName(ctx context.Context, rec *domain.RollbackRecord) (string, error) {
	name := rollbackTagBase(rec.FromVersion)
	exists, err := s.git.TagExists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		name = fmt.Sprintf("%s-%s", name, rec.Timestamp.UTC().Format(tagSuffixLayout))
	}
	return name, nil
}

func (s *Service) tag(ctx context.Context, rec *domain.RollbackRecord) error {
	log := logging.FromCtx(ctx)
	if err := rec.Advance(domain.RollbackTagging); err != nil {
		return err
	}

	name, err := s.tagName(ctx, rec)
	if err == nil {
		err = s.git.CreateTag(ctx, name,
			fmt.Sprintf("Rollback of %s to %s\n\nReason: %s", rec.FromVersion, rec.ToVersion, rec.Reason))
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create rollback tag")
		rec.RecordStepError(domain.StepTag, err)
		return rec.Advance(domain.RollbackTagFailed)
	}
	rec.TagCreated = true
	rec.TagName = name

	if err := s.git.PushTag(ctx, name); err != nil {
		log.Error().Err(err).Str("tag", name).Msg("failed to push rollback tag")
		rec.RecordStepError(domain.StepPushTag, err)
	} else {
		rec.TagPushed = true
	}
	log.Info().Str("tag", name).Bool("pushed", rec.TagPushed).Msg("rollback tag created")
	return rec.Advance(domain.RollbackTagged)
}

// report files the issue and writes the notice and the post-incident report.
// The report is rendered last so it reflects every earlier outcome.
func (s *Service) report(ctx context.Context, rec *domain.RollbackRecord) error {
	log := logging.FromCtx(ctx)
	if err := rec.Advance(domain.RollbackReporting); err != nil {
		return err
	}
	at := s.now()

	issue, err := s.reporter.IssueBody(rec, at)
	if err == nil {
		rec.IssueURL, err = s.ticketing.CreateIssue(ctx, issue)
	}
	switch {
	case errors.Is(err, domain.ErrTicketingDisabled):
		log.Warn().Msg("ticketing not configured, issue not filed")
		rec.RecordStepError(domain.StepIssue, err)
	case err != nil:
		log.Error().Err(err).Msg("failed to file incident issue")
		rec.RecordStepError(domain.StepIssue, err)
	default:
		rec.IssueCreated = true
		log.Info().Str(logging.FieldURL, rec.IssueURL).Msg("incident issue filed")
	}

	notice, err := s.reporter.UserNotice(rec, at)
	if err == nil {
		rec.NoticePath, err = s.reports.WriteReport(ctx, incident.KindNotice, rec.FromVersion, at, notice)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write user notice")
		rec.RecordStepError(domain.StepNotice, err)
	}

	report, err := s.reporter.PostIncidentReport(rec, at)
	if err == nil {
		rec.ReportPath, err = s.reports.WriteReport(ctx, incident.KindReport, rec.FromVersion, at, report)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write post-incident report")
		rec.RecordStepError(domain.StepReport, err)
	}

	return rec.Advance(domain.RollbackComplete)
}
