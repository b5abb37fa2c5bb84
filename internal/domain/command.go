package domain

import "time"

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// CommandResult is the captured outcome of a finished Command. A non-zero
// ExitCode is not an error by itself.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Combined returns stdout followed by stderr.
func (r CommandResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}
