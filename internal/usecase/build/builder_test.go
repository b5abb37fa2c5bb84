package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/boundaries/out/mocks"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/pkg/verify"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func projectWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pyproject.toml"), "[project]\nname = \"demo\"\nversion = \"1.0.0\"\n")
	writeFile(t, filepath.Join(dir, "src", "demo", "__init__.py"), "__version__ = '1.0.0'\n")
	return dir
}

// buildProduces makes the mocked toolchain write files into dist/.
func buildProduces(t *testing.T, runner *mocks.MockCommandRunner, workspace string, exitCode int, files map[string]string) {
	runner.On("Run", mock.Anything, domain.Command{Name: "python", Args: []string{"-m", "build"}, Dir: workspace}).
		Run(func(mock.Arguments) {
			for name, content := range files {
				writeFile(t, filepath.Join(workspace, "dist", name), content)
			}
		}).
		Return(domain.CommandResult{ExitCode: exitCode, Stderr: "ERROR Backend subprocess exited"}, nil).
		Once()
}

func TestBuilder_EmptyWorkspace(t *testing.T) {
	runner := mocks.NewMockCommandRunner(t)

	artifacts, err := NewBuilder(runner, DefaultConfig()).Build(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuild)
	assert.ErrorIs(t, err, domain.ErrNoSourceFiles)
	assert.Equal(t, domain.KindBuild, domain.KindOf(err))
	assert.Empty(t, artifacts)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestBuilder_BuildsAndClassifies(t *testing.T) {
	ws := projectWorkspace(t)
	writeFile(t, filepath.Join(ws, "dist", "demo-0.9.0-py3-none-any.whl"), "stale")
	writeFile(t, filepath.Join(ws, "demo.egg-info", "PKG-INFO"), "stale")

	runner := mocks.NewMockCommandRunner(t)
	buildProduces(t, runner, ws, 0, map[string]string{
		"demo-1.0.0-py3-none-any.whl": "wheel-bytes",
		"demo-1.0.0.tar.gz":           "sdist-bytes",
		"SHA256SUMS.txt":              "ignored",
	})

	artifacts, err := NewBuilder(runner, DefaultConfig()).Build(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, domain.SourceDist, artifacts[0].Kind)
	assert.Equal(t, "demo-1.0.0.tar.gz", artifacts[0].Filename())
	assert.Equal(t, domain.BinaryDist, artifacts[1].Kind)
	assert.Equal(t, int64(len("wheel-bytes")), artifacts[1].SizeBytes)

	sum := sha256.Sum256([]byte("sdist-bytes"))
	assert.Equal(t, hex.EncodeToString(sum[:]), artifacts[0].Checksum)

	assert.NoFileExists(t, filepath.Join(ws, "dist", "demo-0.9.0-py3-none-any.whl"))
	assert.NoDirExists(t, filepath.Join(ws, "demo.egg-info"))
}

func TestBuilder_Failures(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		files    map[string]string
		cfg      Config
		wantErr  error
	}{
		{
			name:     "toolchain fails",
			exitCode: 1,
			wantErr:  domain.ErrBuild,
		},
		{
			name:    "nothing produced",
			wantErr: domain.ErrBuild,
		},
		{
			name:    "wheel only",
			files:   map[string]string{"demo-1.0.0-py3-none-any.whl": "w"},
			wantErr: domain.ErrArtifactMissing,
		},
		{
			name: "too large",
			files: map[string]string{
				"demo-1.0.0-py3-none-any.whl": "wheel",
				"demo-1.0.0.tar.gz":           "a much larger source distribution",
			},
			cfg:     Config{MaxArtifactSize: 10},
			wantErr: domain.ErrArtifactTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := projectWorkspace(t)
			runner := mocks.NewMockCommandRunner(t)
			buildProduces(t, runner, ws, tt.exitCode, tt.files)

			artifacts, err := NewBuilder(runner, tt.cfg).Build(context.Background(), ws)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindBuild, domain.KindOf(err))
			assert.Empty(t, artifacts)
		})
	}
}

func TestBuilder_ToolMissing(t *testing.T) {
	ws := projectWorkspace(t)
	runner := mocks.NewMockCommandRunner(t)
	missing := domain.Configuration("run python", domain.ErrToolNotFound, "install python")
	runner.On("Run", mock.Anything, mock.Anything).Return(domain.CommandResult{ExitCode: -1}, missing)

	_, err := NewBuilder(runner, DefaultConfig()).Build(context.Background(), ws)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Equal(t, "install python", domain.HintOf(err))
}

func TestBuilder_VerifyArchives(t *testing.T) {
	ws := projectWorkspace(t)
	runner := mocks.NewMockCommandRunner(t)
	runner.On("Run", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			writeFile(t, filepath.Join(ws, "dist", "demo-1.0.0.tar.gz"), "not a gzip stream")
			writeFile(t, filepath.Join(ws, "dist", "demo-1.0.0-py3-none-any.whl"), "not a zip")
		}).
		Return(domain.CommandResult{}, nil).
		Once()

	cfg := DefaultConfig()
	cfg.VerifyArchives = true
	artifacts, err := NewBuilder(runner, cfg).Build(context.Background(), ws)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuild)
	assert.ErrorIs(t, err, verify.ErrInvalidArchive)
	assert.Equal(t, domain.KindBuild, domain.KindOf(err))
	assert.Empty(t, artifacts)
}

func TestBuilder_RejectsUnsafeOutputDir(t *testing.T) {
	for _, dir := range []string{".", "..", "../dist", "dist/../.."} {
		t.Run(dir, func(t *testing.T) {
			ws := projectWorkspace(t)
			runner := mocks.NewMockCommandRunner(t)
			cfg := DefaultConfig()
			cfg.OutputDir = dir

			_, err := NewBuilder(runner, cfg).Build(context.Background(), ws)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
			assert.FileExists(t, filepath.Join(ws, "pyproject.toml"))
			assert.FileExists(t, filepath.Join(ws, "src", "demo", "__init__.py"))
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}
