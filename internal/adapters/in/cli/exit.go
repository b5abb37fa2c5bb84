package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bnema/shipit/internal/domain"
)

// Process exit codes of the release and rollback commands.
const (
	ExitOK            = 0
	ExitReleaseFailed = 1
	ExitPublishFailed = 2
	ExitTagFailed     = 3
	ExitRollbackAbort = 1
	ExitRollbackFatal = 2
	exitUsageRelease  = ExitReleaseFailed
	exitUsageRollback = ExitRollbackFatal
)

// ExitError carries the process exit code for an already reported error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for err. Errors that carry no
// code exit 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// releaseExitCode maps a release error to its exit code. An artifact that
// reached the registry but could not be tagged exits 3.
func releaseExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch domain.KindOf(err) {
	case domain.KindPublish:
		return ExitPublishFailed
	case domain.KindTag:
		return ExitTagFailed
	default:
		return ExitReleaseFailed
	}
}

// rollbackExitCode maps a rollback error to its exit code. Rollback only
// returns errors before its first side effect.
func rollbackExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if domain.KindOf(err) == domain.KindAborted {
		return ExitRollbackAbort
	}
	return ExitRollbackFatal
}

// usageError reports a bad command line as a validation error and exits
// with code. It serves both as Args validator wrapper and FlagErrorFunc.
func usageError(code int, usage string) func(*cobra.Command, error) error {
	return func(cmd *cobra.Command, err error) error {
		err = domain.Validation("parse arguments", err, usage)
		renderFailure(cmd.ErrOrStderr(), "", err)
		return &ExitError{Code: code, Err: err}
	}
}
