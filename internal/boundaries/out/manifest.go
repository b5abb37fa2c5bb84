package out

import (
	"context"

	"github.com/bnema/shipit/internal/domain"
)

// ManifestStore reads and writes the project version in the package manifest.
type ManifestStore interface {
	ReadVersion(ctx context.Context) (domain.Version, error)
	WriteVersion(ctx context.Context, v domain.Version) error
	Path() string
}
