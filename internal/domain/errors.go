// Package domain holds the release and rollback types and their rules.
// It has no dependency on adapters or frameworks.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// Version errors
	ErrInvalidVersion    = errors.New("invalid semantic version")
	ErrInvalidBumpKind   = errors.New("invalid bump kind")
	ErrManifest          = errors.New("manifest error")
	ErrNoPreviousVersion = errors.New("no previous version")
	ErrVersionNotNewer   = errors.New("target version is not older than the rolled back version")

	// Workspace errors
	ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")
	ErrBranchNotAllowed = errors.New("branch is not allowed for releases")

	// Gate errors
	ErrGateFailed    = errors.New("quality gate failed")
	ErrToolNotFound  = errors.New("tool not installed")
	ErrMetricMissing = errors.New("metric not found in tool output")

	// Build errors
	ErrBuild            = errors.New("build failed")
	ErrArtifactMissing  = errors.New("required artifact kind missing")
	ErrArtifactTooLarge = errors.New("artifact exceeds size limit")
	ErrNoSourceFiles    = errors.New("workspace has no source files")

	// Registry errors
	ErrPublish           = errors.New("publish failed")
	ErrDelete            = errors.New("delete failed")
	ErrAuth              = errors.New("registry token not configured")
	ErrNotFound          = errors.New("version not found")
	ErrIndexUnavailable  = errors.New("registry index unavailable")
	ErrRegistryTransient = errors.New("registry temporarily unavailable")

	// Source control errors
	ErrTagExists    = errors.New("tag already exists")
	ErrTag          = errors.New("tag creation failed")
	ErrPush         = errors.New("tag push failed")
	ErrDetachedHead = errors.New("HEAD is detached")

	// Ticketing errors
	ErrTicketingDisabled = errors.New("ticketing credential not configured")
	ErrTicketing         = errors.New("issue filing failed")

	// Config errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingToken  = errors.New("missing token")

	// Flow errors
	ErrAborted = errors.New("aborted by operator")
)

// Kind classifies an error for reporting and exit-code selection.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindGate
	KindBuild
	KindNetwork
	KindPublish
	KindTag
	KindAborted
)

// String returns the human readable kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindConfiguration:
		return "configuration error"
	case KindGate:
		return "gate failure"
	case KindBuild:
		return "build failure"
	case KindNetwork:
		return "network error"
	case KindPublish:
		return "publish failure"
	case KindTag:
		return "tag failure"
	case KindAborted:
		return "aborted"
	default:
		return "error"
	}
}

// Error is a classified error carrying the failing operation and a
// suggested next command for the operator.
type Error struct {
	Kind Kind
	Op   string
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error. A nil err yields nil.
func NewError(kind Kind, op string, err error, hint string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Hint: hint, Err: err}
}

// Validation classifies err as a validation error.
func Validation(op string, err error, hint string) error {
	return NewError(KindValidation, op, err, hint)
}

// Configuration classifies err as a configuration error.
func Configuration(op string, err error, hint string) error {
	return NewError(KindConfiguration, op, err, hint)
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HintOf returns the first non-empty hint in err's chain.
func HintOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Hint != "" {
			return e.Hint
		}
		err = e.Err
	}
	return ""
}
