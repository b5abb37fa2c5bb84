// Package command implements the CommandRunner port with os/exec.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// Runner executes external tools and captures their output.
type Runner struct {
	env    []string
	stream io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithEnv appends KEY=VALUE pairs to every command's environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithStream mirrors combined output to w while the command runs.
func WithStream(w io.Writer) Option {
	return func(r *Runner) {
		r.stream = w
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and waits for it. A missing executable maps to
// domain.ErrToolNotFound; a non-zero exit is reported in the result only.
func (r *Runner) Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "command",
		logging.FieldAction:  cmd.Name,
	})
	log := logging.FromCtx(ctx)

	if _, err := exec.LookPath(cmd.Name); err != nil {
		return domain.CommandResult{ExitCode: -1}, domain.Configuration(
			"run "+cmd.Name,
			fmt.Errorf("%w: %s", domain.ErrToolNotFound, cmd.Name),
			fmt.Sprintf("install %s or fix its command in shipit.toml", cmd.Name),
		)
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(r.env) > 0 || len(cmd.Env) > 0 {
		c.Env = append(append(os.Environ(), r.env...), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if r.stream != nil {
		c.Stdout = io.MultiWriter(&stdout, r.stream)
		c.Stderr = io.MultiWriter(&stderr, r.stream)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	log.Debug().Strs("args", cmd.Args).Str(logging.FieldPath, cmd.Dir).Msg("running command")
	start := time.Now()
	err := c.Run()
	result := domain.CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case ctx.Err() != nil:
		result.ExitCode = -1
		return result, ctx.Err()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		log.Debug().
			Int("exit_code", result.ExitCode).
			Str("output_tail", tail(result.Combined(), failureTailLines)).
			Msg("command failed")
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}

	log.Debug().
		Int("exit_code", result.ExitCode).
		Dur(logging.FieldDuration, result.Duration).
		Msg("command finished")
	return result, nil
}

// failureTailLines bounds the output logged for a failed command.
const failureTailLines = 5

// tail returns at most the last n lines of s.
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if n <= 0 || s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
