package out

import (
	"context"

	"github.com/bnema/shipit/internal/domain"
)

// CommandRunner executes external tools. An error is returned only when the
// process could not be started or was cancelled; a non-zero exit code is
// reported through the result.
type CommandRunner interface {
	Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error)
}
