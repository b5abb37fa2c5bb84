package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/adapters/in/cli"
	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/boundaries/out/mocks"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/testutils"
)

func newWorkspace(t *testing.T, pyproject string) string {
	t.Helper()
	dir, _ := testutils.GitWorkspace(t, map[string]string{"pyproject.toml": pyproject}, false)
	return dir
}

func TestNew_WiresServices(t *testing.T) {
	workspace := newWorkspace(t, "[project]\nname = \"Demo_Pkg\"\nversion = \"1.2.3\"\n")
	t.Setenv(EnvRegistryToken, "pypi-token")
	path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

	var stderr bytes.Buffer
	a, err := New(context.Background(), cli.Options{
		ConfigPath: path,
		LogLevel:   "debug",
		Confirmer:  mocks.NewMockConfirmer(t),
		Stderr:     &stderr,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.Release)
	assert.NotNil(t, a.Rollback)
	assert.Equal(t, "debug", a.Config.Logging.Level)
	assert.DirExists(t, filepath.Join(workspace, DefaultReportsDir))
	assert.Contains(t, stderr.String(), "configuration loaded")
	assert.Contains(t, stderr.String(), "demo-pkg")
}

func TestNew_ActivityWrapsRunnerUnlessStreaming(t *testing.T) {
	tests := []struct {
		level     string
		wantCalls int
	}{
		{level: "info", wantCalls: 1},
		{level: "debug", wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			workspace := newWorkspace(t, "[project]\nname = \"demo\"\nversion = \"1.2.3\"\n")
			path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

			calls := 0
			a, err := New(context.Background(), cli.Options{
				ConfigPath: path,
				LogLevel:   tt.level,
				Confirmer:  mocks.NewMockConfirmer(t),
				Stderr:     &bytes.Buffer{},
				Activity: func(next out.CommandRunner) out.CommandRunner {
					calls++
					return next
				},
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestServices_ReleasePrecheckLeavesManifest(t *testing.T) {
	workspace := newWorkspace(t, "[project]\nname = \"demo\"\nversion = \"1.2.3\"\n")
	path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

	svc, err := Services(context.Background(), cli.Options{
		ConfigPath: path,
		Confirmer:  mocks.NewMockConfirmer(t),
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	// an empty repository has no branch to release from
	rec, err := svc.Release.Release(context.Background(), domain.ReleaseRequest{Bump: domain.BumpPatch, DryRun: true})
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "1.2.4", rec.Version.String())
	assert.Equal(t, domain.StateInit, rec.State)

	raw, err := os.ReadFile(filepath.Join(workspace, "pyproject.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `version = "1.2.3"`)
}

func TestNew_Errors(t *testing.T) {
	t.Run("missing confirmer", func(t *testing.T) {
		workspace := newWorkspace(t, "[project]\nname = \"demo\"\nversion = \"1.0.0\"\n")
		path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

		_, err := New(context.Background(), cli.Options{ConfigPath: path, Stderr: &bytes.Buffer{}})
		require.Error(t, err)
		assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	})

	t.Run("manifest without name", func(t *testing.T) {
		workspace := newWorkspace(t, "[project]\nversion = \"1.0.0\"\n")
		path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

		_, err := New(context.Background(), cli.Options{ConfigPath: path, Confirmer: mocks.NewMockConfirmer(t), Stderr: &bytes.Buffer{}})
		require.Error(t, err)
		assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
		assert.Contains(t, domain.HintOf(err), "project.name")
	})

	t.Run("invalid project name", func(t *testing.T) {
		workspace := newWorkspace(t, "[project]\nname = \"demo\"\nversion = \"1.0.0\"\n")
		path := writeConfig(t, "[project]\nname = \"-bad name-\"\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

		_, err := New(context.Background(), cli.Options{ConfigPath: path, Confirmer: mocks.NewMockConfirmer(t), Stderr: &bytes.Buffer{}})
		require.Error(t, err)
		assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	})

	t.Run("not a git repository", func(t *testing.T) {
		workspace := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(workspace, "pyproject.toml"), []byte("[project]\nname = \"demo\"\n"), 0600))
		path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n")

		_, err := New(context.Background(), cli.Options{ConfigPath: path, Confirmer: mocks.NewMockConfirmer(t), Stderr: &bytes.Buffer{}})
		require.Error(t, err)
		assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	})

	t.Run("invalid gate battery", func(t *testing.T) {
		workspace := newWorkspace(t, "[project]\nname = \"demo\"\nversion = \"1.0.0\"\n")
		path := writeConfig(t, "[project]\nworkspace = \""+filepath.ToSlash(workspace)+"\"\n[[gates.battery]]\nname = \"tests\"\n")

		_, err := New(context.Background(), cli.Options{ConfigPath: path, Confirmer: mocks.NewMockConfirmer(t), Stderr: &bytes.Buffer{}})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}
