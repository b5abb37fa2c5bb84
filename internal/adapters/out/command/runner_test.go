package command

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/domain"
)

func TestRunner_CapturesOutputAndExitCode(t *testing.T) {
	var streamed bytes.Buffer
	r := NewRunner(WithStream(&streamed))

	res, err := r.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Contains(t, streamed.String(), "out")
}

func TestRunner_Env(t *testing.T) {
	r := NewRunner(WithEnv("SHIPIT_A=1"))
	res, err := r.Run(context.Background(), domain.Command{
		Name: "sh",
		Args: []string{"-c", "echo $SHIPIT_A$SHIPIT_B"},
		Env:  []string{"SHIPIT_B=2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "12\n", res.Stdout)
}

func TestRunner_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	res, err := NewRunner().Run(context.Background(), domain.Command{Name: "pwd", Dir: dir})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir)
}

func TestRunner_ToolNotFound(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), domain.Command{Name: "shipit-no-such-tool"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner().Run(ctx, domain.Command{Name: "sleep", Args: []string{"5"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"a\nb\nc\n", 2, "b\nc"},
		{"a\nb\nc", 5, "a\nb\nc"},
		{"single", 1, "single"},
		{"a\nb", 0, ""},
		{"", 3, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tail(tt.in, tt.n))
	}
}
