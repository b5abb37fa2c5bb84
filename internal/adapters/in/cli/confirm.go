package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bnema/shipit/internal/adapters/in/cli/ui/components"
	"github.com/bnema/shipit/internal/boundaries/out"
)

// autoConfirmer answers yes to every question. Used for --yes.
type autoConfirmer struct {
	w io.Writer
}

func (c autoConfirmer) Confirm(_ context.Context, question, _ string) (bool, error) {
	if c.w != nil {
		_ = cliWriteLine(c.w, cliRenderMuted(question+" yes (--yes)"))
	}
	return true, nil
}

// lineConfirmer reads a y/N answer from a line based reader. Anything but
// y or yes is a no, as is end of input.
type lineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineConfirmer(in io.Reader, out io.Writer) *lineConfirmer {
	return &lineConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *lineConfirmer) Confirm(ctx context.Context, question, detail string) (bool, error) {
	if detail != "" {
		_ = cliWriteLine(c.out, cliRenderMuted(detail))
	}
	if err := cliWritef(c.out, "%s [y/N]: ", question); err != nil {
		return false, err
	}

	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		done <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-done:
		if a.err != nil && a.line == "" {
			if a.err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("read confirmation: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// ttyConfirmer shows the interactive confirmation dialog.
type ttyConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (c ttyConfirmer) Confirm(ctx context.Context, question, detail string) (bool, error) {
	return components.Ask(ctx, c.in, c.out, question, detail)
}

// selectConfirmer picks the confirmation adapter: --yes answers for the
// operator, a terminal gets the dialog, anything else a y/N line prompt.
func selectConfirmer(yes bool, stdin io.Reader, stderr io.Writer) out.Confirmer {
	if yes {
		return autoConfirmer{w: stderr}
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ttyConfirmer{in: stdin, out: stderr}
	}
	return newLineConfirmer(stdin, stderr)
}
