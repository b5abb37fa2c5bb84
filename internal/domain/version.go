package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is an immutable semantic version of the released package.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
}

// Ordering is the result of comparing two versions.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// String returns "less", "equal" or "greater".
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// BumpKind selects which version component a release increments.
type BumpKind string

const (
	BumpPatch BumpKind = "patch"
	BumpMinor BumpKind = "minor"
	BumpMajor BumpKind = "major"
)

// ParseBumpKind validates a bump kind given on the command line.
func ParseBumpKind(s string) (BumpKind, error) {
	switch BumpKind(strings.ToLower(strings.TrimSpace(s))) {
	case BumpPatch:
		return BumpPatch, nil
	case BumpMinor:
		return BumpMinor, nil
	case BumpMajor:
		return BumpMajor, nil
	}
	return "", Validation("parse bump kind", fmt.Errorf("%w: %q (expected patch, minor or major)", ErrInvalidBumpKind, s),
		"use one of: patch, minor, major")
}

// ParseVersion parses a semantic version. A leading "v" is accepted.
// Build metadata is rejected because it does not take part in ordering.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "v")
	sv, err := semver.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}
	if sv.Metadata() != "" {
		return Version{}, fmt.Errorf("%w: %q: build metadata is not allowed", ErrInvalidVersion, s)
	}
	return Version{
		Major:      sv.Major(),
		Minor:      sv.Minor(),
		Patch:      sv.Patch(),
		Prerelease: sv.Prerelease(),
	}, nil
}

// MustParseVersion is ParseVersion for literals known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical form without a "v" prefix.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Tag returns the git tag name for the version.
func (v Version) Tag() string {
	return "v" + v.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v == Version{}
}

// IsPrerelease reports whether v carries a prerelease identifier.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

func (v Version) semver() *semver.Version {
	return semver.New(v.Major, v.Minor, v.Patch, v.Prerelease, "")
}

// Compare orders v against other: major, minor, patch numerically, then a
// prerelease sorts before the release it precedes.
func (v Version) Compare(other Version) Ordering {
	return Ordering(v.semver().Compare(other.semver()))
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) == Less
}

// Bump returns the next version for the given kind. Any prerelease is dropped.
func (v Version) Bump(kind BumpKind) (Version, error) {
	base := semver.New(v.Major, v.Minor, v.Patch, "", "")
	var next semver.Version
	switch kind {
	case BumpPatch:
		if v.IsPrerelease() {
			// 1.2.3-rc.1 releases as 1.2.3
			next = *base
		} else {
			next = base.IncPatch()
		}
	case BumpMinor:
		next = base.IncMinor()
	case BumpMajor:
		next = base.IncMajor()
	default:
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidBumpKind, kind)
	}
	return Version{Major: next.Major(), Minor: next.Minor(), Patch: next.Patch()}, nil
}

// DeployedVersionIndex is the ordered, deduplicated set of versions the
// registry reports as published for a package.
type DeployedVersionIndex struct {
	Package  string
	versions []Version
}

// NewDeployedVersionIndex sorts and deduplicates versions.
func NewDeployedVersionIndex(pkg string, versions []Version) DeployedVersionIndex {
	sorted := make([]Version, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	out := sorted[:0]
	for i, v := range sorted {
		if i > 0 && v.Compare(sorted[i-1]) == Equal {
			continue
		}
		out = append(out, v)
	}
	return DeployedVersionIndex{Package: pkg, versions: out}
}

// Versions returns the published versions in ascending order.
func (idx DeployedVersionIndex) Versions() []Version {
	out := make([]Version, len(idx.versions))
	copy(out, idx.versions)
	return out
}

// Len returns the number of published versions.
func (idx DeployedVersionIndex) Len() int {
	return len(idx.versions)
}

// Contains reports whether v is in the index.
func (idx DeployedVersionIndex) Contains(v Version) bool {
	i := sort.Search(len(idx.versions), func(i int) bool {
		return !idx.versions[i].Less(v)
	})
	return i < len(idx.versions) && idx.versions[i].Compare(v) == Equal
}

// Latest returns the greatest published version.
func (idx DeployedVersionIndex) Latest() (Version, bool) {
	if len(idx.versions) == 0 {
		return Version{}, false
	}
	return idx.versions[len(idx.versions)-1], true
}

// GreatestBelow returns the greatest version strictly less than v.
func (idx DeployedVersionIndex) GreatestBelow(v Version) (Version, bool) {
	for i := len(idx.versions) - 1; i >= 0; i-- {
		if idx.versions[i].Less(v) {
			return idx.versions[i], true
		}
	}
	return Version{}, false
}
