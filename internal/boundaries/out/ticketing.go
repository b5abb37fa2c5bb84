package out

import (
	"context"

	"github.com/bnema/shipit/internal/domain"
)

// Ticketing files tracking issues. Implementations return
// domain.ErrTicketingDisabled when no credential is configured.
type Ticketing interface {
	CreateIssue(ctx context.Context, issue domain.Issue) (string, error)
}
