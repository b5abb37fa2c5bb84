package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ArtifactKind distinguishes source from pre-built distributions.
type ArtifactKind string

const (
	SourceDist ArtifactKind = "sdist"
	BinaryDist ArtifactKind = "bdist_wheel"
)

// BuildArtifact is one distributable file produced by the build.
type BuildArtifact struct {
	Path      string       `yaml:"path"`
	Kind      ArtifactKind `yaml:"kind"`
	SizeBytes int64        `yaml:"size_bytes"`
	Checksum  string       `yaml:"sha256"`
}

// Filename returns the base name of the artifact.
func (a BuildArtifact) Filename() string {
	return filepath.Base(a.Path)
}

// ClassifyArtifact maps a distribution file name to its kind using the
// packaging naming conventions. ok is false for unrelated files.
func ClassifyArtifact(name string) (ArtifactKind, bool) {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasSuffix(lower, ".whl"):
		return BinaryDist, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".zip"):
		return SourceDist, true
	}
	return "", false
}

// ValidateArtifacts checks the publish precondition: at least one source
// and one binary distribution.
func ValidateArtifacts(artifacts []BuildArtifact) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("%w: no artifacts produced", ErrBuild)
	}
	var hasSource, hasBinary bool
	for _, a := range artifacts {
		switch a.Kind {
		case SourceDist:
			hasSource = true
		case BinaryDist:
			hasBinary = true
		}
	}
	if !hasSource {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, SourceDist)
	}
	if !hasBinary {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, BinaryDist)
	}
	return nil
}
