package domain

import "time"

// GateStatus is the outcome of a single quality gate.
type GateStatus string

const (
	GatePass    GateStatus = "pass"
	GateFail    GateStatus = "fail"
	GateSkipped GateStatus = "skipped"
)

// GateMode controls whether the gate runner stops at the first failure.
type GateMode string

const (
	// FailFast stops after the first failing required gate.
	FailFast GateMode = "fail-fast"
	// Continue runs every gate regardless of earlier failures.
	Continue GateMode = "continue"
)

// GateResult is the recorded outcome of one gate.
type GateResult struct {
	Name     string        `yaml:"name"`
	Required bool          `yaml:"required"`
	Status   GateStatus    `yaml:"status"`
	Detail   string        `yaml:"detail,omitempty"`
	Metric   *float64      `yaml:"metric,omitempty"`
	ExitCode int           `yaml:"exit_code"`
	Duration time.Duration `yaml:"duration"`
}

// GateReport is the ordered sequence of gate results of one run.
type GateReport []GateResult

// Passed reports whether every required gate passed. An empty report has
// not passed anything.
func (r GateReport) Passed() bool {
	if len(r) == 0 {
		return false
	}
	for _, res := range r {
		if res.Required && res.Status != GatePass {
			return false
		}
	}
	return true
}

// FirstFailure returns the first required gate that did not pass.
func (r GateReport) FirstFailure() (GateResult, bool) {
	for _, res := range r {
		if res.Required && res.Status != GatePass {
			return res, true
		}
	}
	return GateResult{}, false
}

// Names returns the gate names in run order.
func (r GateReport) Names() []string {
	names := make([]string, len(r))
	for i, res := range r {
		names[i] = res.Name
	}
	return names
}
