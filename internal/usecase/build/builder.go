// Package build produces the source and binary distributions of a release.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/shipit/internal/boundaries/out"
	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
	"github.com/bnema/shipit/pkg/validation"
	"github.com/bnema/shipit/pkg/verify"
)

// Config controls how the package is built.
type Config struct {
	// Command is the toolchain build invocation, run inside the workspace.
	Command []string
	// OutputDir is where the toolchain writes distributions, relative to
	// the workspace.
	OutputDir string
	// MaxArtifactSize rejects larger artifacts. Zero disables the check.
	MaxArtifactSize int64
	// VerifyArchives opens every artifact and checks its packaging metadata.
	VerifyArchives bool
}

// DefaultConfig builds with PEP 517 "python -m build" into dist/.
func DefaultConfig() Config {
	return Config{
		Command:   []string{"python", "-m", "build"},
		OutputDir: "dist",
	}
}

// Builder is the package builder.
type Builder struct {
	runner out.CommandRunner
	cfg    Config
}

// NewBuilder creates a package builder.
func NewBuilder(runner out.CommandRunner, cfg Config) *Builder {
	if len(cfg.Command) == 0 {
		cfg.Command = DefaultConfig().Command
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultConfig().OutputDir
	}
	return &Builder{runner: runner, cfg: cfg}
}

// skipDirs are never searched for sources.
var skipDirs = map[string]bool{
	".git": true, ".venv": true, "venv": true, "node_modules": true,
	"__pycache__": true, "build": true, "dist": true, ".tox": true,
}

// Build cleans previous output, runs the toolchain and returns the
// classified artifacts. It fails with domain.ErrBuild when nothing usable was
// produced.
func (b *Builder) Build(ctx context.Context, workspace string) ([]domain.BuildArtifact, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "Build",
		logging.FieldPath:    workspace,
	})
	log := logging.FromCtx(ctx)

	if err := validation.ValidateSubdir(b.cfg.OutputDir); err != nil {
		return nil, domain.Configuration("check output directory", fmt.Errorf("%w: build.output_dir: %w", domain.ErrInvalidConfig, err),
			"point build.output_dir at a directory inside the workspace")
	}
	if err := b.clean(workspace); err != nil {
		return nil, domain.NewError(domain.KindBuild, "clean build output", err, "")
	}

	hasSources, err := containsSources(workspace)
	if err != nil {
		return nil, domain.NewError(domain.KindBuild, "scan workspace", fmt.Errorf("%w: %v", domain.ErrBuild, err), "")
	}
	if !hasSources {
		return nil, domain.NewError(domain.KindBuild, "scan workspace",
			fmt.Errorf("%w: %w", domain.ErrBuild, domain.ErrNoSourceFiles),
			"run shipit from the project root")
	}

	res, err := b.runner.Run(ctx, domain.Command{Name: b.cfg.Command[0], Args: b.cfg.Command[1:], Dir: workspace})
	if err != nil {
		return nil, domain.NewError(domain.KindBuild, "run build", fmt.Errorf("%w: %w", domain.ErrBuild, err), domain.HintOf(err))
	}
	if res.ExitCode != 0 {
		return nil, domain.NewError(domain.KindBuild, "run build",
			fmt.Errorf("%w: %s exited with %d: %s", domain.ErrBuild, strings.Join(b.cfg.Command, " "), res.ExitCode, lastLine(res.Combined())),
			"run the build command by hand to see the full output")
	}

	artifacts, err := b.collect(filepath.Join(workspace, b.cfg.OutputDir))
	if err != nil {
		return nil, domain.NewError(domain.KindBuild, "collect artifacts", err, "")
	}
	if err := domain.ValidateArtifacts(artifacts); err != nil {
		return nil, domain.NewError(domain.KindBuild, "validate artifacts", err, "check that the build backend produces both sdist and wheel")
	}

	for _, a := range artifacts {
		log.Info().
			Str("artifact", a.Filename()).
			Str("kind", string(a.Kind)).
			Int64("size", a.SizeBytes).
			Msg("artifact built")
	}
	return artifacts, nil
}

func (b *Builder) clean(workspace string) error {
	targets := []string{filepath.Join(workspace, b.cfg.OutputDir), filepath.Join(workspace, "build")}
	eggInfo, err := filepath.Glob(filepath.Join(workspace, "*.egg-info"))
	if err != nil {
		return err
	}
	srcEggInfo, err := filepath.Glob(filepath.Join(workspace, "src", "*.egg-info"))
	if err != nil {
		return err
	}
	targets = append(append(targets, eggInfo...), srcEggInfo...)

	for _, dir := range targets {
		// RemoveAll returns nil for missing paths
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	return nil
}

func containsSources(workspace string) (bool, error) {
	found := false
	err := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != workspace && (skipDirs[d.Name()] || strings.HasSuffix(d.Name(), ".egg-info")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".py") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found, err
}

func (b *Builder) collect(dir string) ([]domain.BuildArtifact, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var artifacts []domain.BuildArtifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := domain.ClassifyArtifact(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		size, sum, err := checksum(path)
		if err != nil {
			return nil, err
		}
		if b.cfg.MaxArtifactSize > 0 && size > b.cfg.MaxArtifactSize {
			return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", domain.ErrArtifactTooLarge, e.Name(), size, b.cfg.MaxArtifactSize)
		}
		if b.cfg.VerifyArchives {
			if err := verify.Archive(path); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrBuild, err)
			}
		}
		artifacts = append(artifacts, domain.BuildArtifact{Path: path, Kind: kind, SizeBytes: size, Checksum: sum})
	}

	// sdist first so uploads follow the conventional order
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Kind != artifacts[j].Kind {
			return artifacts[i].Kind == domain.SourceDist
		}
		return artifacts[i].Path < artifacts[j].Path
	})
	return artifacts, nil
}

func checksum(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
