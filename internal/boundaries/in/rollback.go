package in

import (
	"context"

	"github.com/bnema/shipit/internal/domain"
)

// RollbackService drives the reverse workflow after a bad release.
type RollbackService interface {
	Rollback(ctx context.Context, req domain.RollbackRequest) (*domain.RollbackRecord, error)
	List(ctx context.Context) (domain.DeployedVersionIndex, error)
}
