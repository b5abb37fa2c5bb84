package domain

import (
	"fmt"
	"time"
)

// PublishTarget selects the registry a release is published to.
type PublishTarget string

const (
	Staging    PublishTarget = "staging"
	Production PublishTarget = "production"
)

// ReleaseStatus is the coarse outcome of a release run.
type ReleaseStatus string

const (
	ReleasePending   ReleaseStatus = "pending"
	ReleasePublished ReleaseStatus = "published"
	ReleaseFailed    ReleaseStatus = "failed"
)

// ReleaseState is a step of the release state machine.
type ReleaseState string

const (
	StateInit          ReleaseState = "init"
	StateGatesRunning  ReleaseState = "gates_running"
	StateGatesPassed   ReleaseState = "gates_passed"
	StateGatesFailed   ReleaseState = "gates_failed"
	StateBuilding      ReleaseState = "building"
	StateBuilt         ReleaseState = "built"
	StateBuildFailed   ReleaseState = "build_failed"
	StatePublishing    ReleaseState = "publishing"
	StatePublished     ReleaseState = "published"
	StatePublishFailed ReleaseState = "publish_failed"
	StateTagging       ReleaseState = "tagging"
	StateTagged        ReleaseState = "tagged"
	StateTagFailed     ReleaseState = "tag_failed"
)

var releaseTransitions = map[ReleaseState][]ReleaseState{
	StateInit:          {StateGatesRunning},
	StateGatesRunning:  {StateGatesPassed, StateGatesFailed},
	StateGatesPassed:   {StateBuilding},
	StateBuilding:      {StateBuilt, StateBuildFailed},
	StateBuilt:         {StatePublishing},
	StatePublishing:    {StatePublished, StatePublishFailed},
	StatePublished:     {StateTagging},
	StateTagging:       {StateTagged, StateTagFailed},
	StateGatesFailed:   nil,
	StateBuildFailed:   nil,
	StatePublishFailed: nil,
	StateTagged:        nil,
	StateTagFailed:     nil,
}

// Terminal reports whether no transition leaves s.
func (s ReleaseState) Terminal() bool {
	next, ok := releaseTransitions[s]
	return ok && len(next) == 0
}

// Failed reports whether s is a terminal failure state.
func (s ReleaseState) Failed() bool {
	switch s {
	case StateGatesFailed, StateBuildFailed, StatePublishFailed, StateTagFailed:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows s -> next.
func (s ReleaseState) CanTransition(next ReleaseState) bool {
	for _, allowed := range releaseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReleaseRecord tracks a single release run. It is owned by the release
// orchestrator that created it.
type ReleaseRecord struct {
	ID              string          `yaml:"id"`
	Package         string          `yaml:"package"`
	Version         Version         `yaml:"version"`
	PreviousVersion Version         `yaml:"previous_version,omitempty"`
	GitCommit       string          `yaml:"git_commit,omitempty"`
	Branch          string          `yaml:"branch,omitempty"`
	StartedAt       time.Time       `yaml:"started_at"`
	FinishedAt      time.Time       `yaml:"finished_at,omitempty"`
	GateReport      GateReport      `yaml:"gate_report"`
	Artifacts       []BuildArtifact `yaml:"artifacts"`
	Target          PublishTarget   `yaml:"publish_target"`
	State           ReleaseState    `yaml:"state"`
	Status          ReleaseStatus   `yaml:"status"`
	DryRun          bool            `yaml:"dry_run"`
	Verified        bool            `yaml:"verified"`
	TagName         string          `yaml:"tag,omitempty"`
	FailureReason   string          `yaml:"failure_reason,omitempty"`
}

// NewReleaseRecord creates a pending record in state Init.
func NewReleaseRecord(id, pkg string, target PublishTarget, dryRun bool, startedAt time.Time) *ReleaseRecord {
	return &ReleaseRecord{
		ID:        id,
		Package:   pkg,
		StartedAt: startedAt,
		Target:    target,
		State:     StateInit,
		Status:    ReleasePending,
		DryRun:    dryRun,
	}
}

// Advance moves the record to next, enforcing the transition table.
func (r *ReleaseRecord) Advance(next ReleaseState) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("illegal release transition %s -> %s", r.State, next)
	}
	r.State = next
	// a tag failure leaves an already published release published
	if next.Failed() && r.Status != ReleasePublished {
		r.Status = ReleaseFailed
	}
	if next == StatePublished {
		r.Status = ReleasePublished
	}
	return nil
}

// Fail moves the record to a failure state and remembers why.
func (r *ReleaseRecord) Fail(state ReleaseState, reason error) error {
	if err := r.Advance(state); err != nil {
		return err
	}
	if reason != nil {
		r.FailureReason = reason.Error()
	}
	return nil
}

// ReadyToPublish is the publish guard: gates passed and valid artifacts
// exist. No flag bypasses it.
func (r *ReleaseRecord) ReadyToPublish() error {
	if r.State != StateBuilt {
		return fmt.Errorf("cannot publish from state %s", r.State)
	}
	if !r.GateReport.Passed() {
		return fmt.Errorf("%w: gate report did not pass", ErrGateFailed)
	}
	return ValidateArtifacts(r.Artifacts)
}
