// Package version resolves, compares and bumps the project version.
package version

import (
	"context"
	"fmt"

	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// Service is the version resolver. It has no side effects besides Write.
type Service struct {
	manifest out.ManifestStore
}

// NewService creates a version resolver over the given manifest.
func NewService(manifest out.ManifestStore) *Service {
	return &Service{manifest: manifest}
}

// Current reads the manifest version.
func (s *Service) Current(ctx context.Context) (domain.Version, error) {
	v, err := s.manifest.ReadVersion(ctx)
	if err != nil {
		return domain.Version{}, domain.Validation("read manifest version", err,
			fmt.Sprintf("set a semantic version in %s", s.manifest.Path()))
	}
	return v, nil
}

// Compare orders two versions.
func (s *Service) Compare(a, b domain.Version) domain.Ordering {
	return a.Compare(b)
}

// PreviousStable returns the greatest version in index strictly below the
// current manifest version.
func (s *Service) PreviousStable(ctx context.Context, index domain.DeployedVersionIndex) (domain.Version, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return domain.Version{}, err
	}
	return s.PreviousStableFrom(ctx, current, index)
}

// PreviousStableFrom returns the greatest version in index strictly below
// from.
func (s *Service) PreviousStableFrom(ctx context.Context, from domain.Version, index domain.DeployedVersionIndex) (domain.Version, error) {
	if index.Len() == 0 {
		return domain.Version{}, domain.Validation("resolve previous version",
			fmt.Errorf("%w: registry lists no versions of %s", domain.ErrNoPreviousVersion, index.Package),
			"pass the target version explicitly")
	}
	prev, ok := index.GreatestBelow(from)
	if !ok {
		return domain.Version{}, domain.Validation("resolve previous version",
			fmt.Errorf("%w: nothing published below %s", domain.ErrNoPreviousVersion, from),
			"pass the target version explicitly")
	}
	logging.FromCtx(ctx).Debug().
		Str("from", from.String()).
		Str("previous", prev.String()).
		Msg("resolved previous stable version")
	return prev, nil
}

// Next computes the version a release of the given kind produces.
func (s *Service) Next(ctx context.Context, kind domain.BumpKind) (current, next domain.Version, err error) {
	current, err = s.Current(ctx)
	if err != nil {
		return domain.Version{}, domain.Version{}, err
	}
	next, err = current.Bump(kind)
	if err != nil {
		return domain.Version{}, domain.Version{}, domain.Validation("bump version", err, "use patch, minor or major")
	}
	return current, next, nil
}

// Write persists v to the manifest.
func (s *Service) Write(ctx context.Context, v domain.Version) error {
	if err := s.manifest.WriteVersion(ctx, v); err != nil {
		return fmt.Errorf("failed to write version %s: %w", v, err)
	}
	return nil
}
