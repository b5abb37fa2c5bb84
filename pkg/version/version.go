// Package version holds the shipit build information, injected by the
// linker and set once from main.
package version

import "fmt"

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Set stores build-time version info. Call once from main.
func Set(v, c, d string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if d != "" {
		buildDate = d
	}
}

// Version returns the build version string.
func Version() string { return version }

// Commit returns the build commit hash.
func Commit() string { return commit }

// BuildDate returns the build date string.
func BuildDate() string { return buildDate }

// String returns a one-line summary for --version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}
