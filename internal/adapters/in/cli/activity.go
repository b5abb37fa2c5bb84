package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bnema/shipit/internal/adapters/in/cli/ui/components"
	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
)

// activityRunner shows a spinner while a gate or build tool runs.
type activityRunner struct {
	next out.CommandRunner
	w    io.Writer
}

func (r activityRunner) Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	var res domain.CommandResult
	err := components.Spin(ctx, r.w, activityLabel(cmd), func() error {
		var err error
		res, err = r.next.Run(ctx, cmd)
		return err
	})
	return res, err
}

func activityLabel(cmd domain.Command) string {
	return "running " + strings.TrimSpace(cmd.Name+" "+strings.Join(cmd.Args, " "))
}

// selectActivity returns the runner decorator for stderr, or nil when stderr
// is not a terminal.
func selectActivity(stderr io.Writer) func(out.CommandRunner) out.CommandRunner {
	f, ok := stderr.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return func(next out.CommandRunner) out.CommandRunner {
		return activityRunner{next: next, w: stderr}
	}
}
