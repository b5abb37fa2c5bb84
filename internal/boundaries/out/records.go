package out

import (
	"context"
	"time"

	"github.com/bnema/shipit/internal/domain"
)

// RecordStore persists release and rollback records. It returns the path
// written.
type RecordStore interface {
	SaveRelease(ctx context.Context, rec *domain.ReleaseRecord) (string, error)
	SaveRollback(ctx context.Context, rec *domain.RollbackRecord) (string, error)
}

// ReportWriter writes incident markdown documents. Each call creates a new
// file and never overwrites an earlier one.
type ReportWriter interface {
	WriteReport(ctx context.Context, kind string, from domain.Version, at time.Time, content string) (string, error)
}
