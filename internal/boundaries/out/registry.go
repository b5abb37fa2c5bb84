package out

import (
	"context"

	"github.com/bnema/shipit/internal/domain"
)

// PackageRegistry is the package index a release is published to.
type PackageRegistry interface {
	// Publish uploads every artifact. Any failed upload fails the call.
	Publish(ctx context.Context, target domain.PublishTarget, name string, version domain.Version, artifacts []domain.BuildArtifact, token string) error
	// QueryVersion returns nil metadata when the version is not published.
	QueryVersion(ctx context.Context, target domain.PublishTarget, name string, version domain.Version) (*domain.PublishedMetadata, error)
	ListVersions(ctx context.Context, target domain.PublishTarget, name string) (domain.DeployedVersionIndex, error)
	// DeleteVersion succeeds when the version is already absent.
	DeleteVersion(ctx context.Context, target domain.PublishTarget, name string, version domain.Version, token string) error
}
