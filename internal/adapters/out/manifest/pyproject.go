// Package manifest reads and writes the project version in pyproject.toml.
package manifest

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

type pyproject struct {
	Project struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

var (
	sectionLine = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*(#.*)?$`)
	versionLine = regexp.MustCompile(`^(\s*version\s*=\s*)(["'])([^"']*)(["'])(.*)$`)
)

// PyProject is a ManifestStore backed by a pyproject.toml file. The
// [project] table wins over [tool.poetry].
type PyProject struct {
	path string
}

// NewPyProject creates a store for the manifest at path.
func NewPyProject(path string) *PyProject {
	return &PyProject{path: path}
}

// Path returns the manifest file path.
func (p *PyProject) Path() string {
	return p.path
}

func (p *PyProject) load() (*pyproject, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifest, err)
	}
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrManifest, p.path, err)
	}
	return &doc, nil
}

// ReadVersion returns the manifest version.
func (p *PyProject) ReadVersion(ctx context.Context) (domain.Version, error) {
	doc, err := p.load()
	if err != nil {
		return domain.Version{}, err
	}
	raw := doc.Project.Version
	if raw == "" {
		raw = doc.Tool.Poetry.Version
	}
	if raw == "" {
		return domain.Version{}, fmt.Errorf("%w: %s has no version field", domain.ErrManifest, p.path)
	}
	v, err := domain.ParseVersion(raw)
	if err != nil {
		return domain.Version{}, fmt.Errorf("%w: %v", domain.ErrManifest, err)
	}
	logging.FromCtx(ctx).Debug().Str(logging.FieldVersion, v.String()).Str(logging.FieldPath, p.path).Msg("read manifest version")
	return v, nil
}

// ReadName returns the package name declared in the manifest.
func (p *PyProject) ReadName() (string, error) {
	doc, err := p.load()
	if err != nil {
		return "", err
	}
	if doc.Project.Name != "" {
		return doc.Project.Name, nil
	}
	if doc.Tool.Poetry.Name != "" {
		return doc.Tool.Poetry.Name, nil
	}
	return "", fmt.Errorf("%w: %s has no name field", domain.ErrManifest, p.path)
}

// WriteVersion rewrites the version line in place, keeping the rest of the
// file byte for byte.
func (p *PyProject) WriteVersion(ctx context.Context, v domain.Version) error {
	doc, err := p.load()
	if err != nil {
		return err
	}
	section := "project"
	if doc.Project.Version == "" && doc.Tool.Poetry.Version != "" {
		section = "tool.poetry"
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrManifest, err)
	}
	lines := strings.Split(string(data), "\n")
	current := ""
	replaced := false
	for i, line := range lines {
		if m := sectionLine.FindStringSubmatch(line); m != nil {
			current = strings.TrimSpace(m[1])
			continue
		}
		if current != section {
			continue
		}
		if m := versionLine.FindStringSubmatch(line); m != nil {
			lines[i] = m[1] + m[2] + v.String() + m[4] + m[5]
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("%w: no version line in [%s] of %s", domain.ErrManifest, section, p.path)
	}

	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrManifest, err)
	}
	if err := os.WriteFile(p.path, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrManifest, p.path, err)
	}
	logging.FromCtx(ctx).Info().Str(logging.FieldVersion, v.String()).Str(logging.FieldPath, p.path).Msg("manifest version updated")
	return nil
}
