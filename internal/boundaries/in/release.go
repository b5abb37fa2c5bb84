package in

import (
	"context"

	"github.com/bnema/shipit/internal/domain"
)

// ReleaseService drives the forward release workflow.
type ReleaseService interface {
	Release(ctx context.Context, req domain.ReleaseRequest) (*domain.ReleaseRecord, error)
}
