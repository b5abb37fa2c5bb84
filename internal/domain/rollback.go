package domain

import (
	"fmt"
	"time"
)

// RollbackState is a step of the rollback state machine.
type RollbackState string

const (
	RollbackRequested        RollbackState = "requested"
	RollbackConfirming       RollbackState = "confirming"
	RollbackConfirmed        RollbackState = "confirmed"
	RollbackAborted          RollbackState = "aborted"
	RollbackDeregistering    RollbackState = "deregistering"
	RollbackDeregistered     RollbackState = "deregistered"
	RollbackDeregisterFailed RollbackState = "deregister_failed"
	RollbackTagging          RollbackState = "tagging"
	RollbackTagged           RollbackState = "tagged"
	RollbackTagFailed        RollbackState = "tag_failed"
	RollbackReporting        RollbackState = "reporting"
	RollbackComplete         RollbackState = "complete"
)

// Deregister and tag failures do not stop the machine: both lead on to the
// next step.
var rollbackTransitions = map[RollbackState][]RollbackState{
	RollbackRequested:        {RollbackConfirming},
	RollbackConfirming:       {RollbackConfirmed, RollbackAborted},
	RollbackConfirmed:        {RollbackDeregistering},
	RollbackDeregistering:    {RollbackDeregistered, RollbackDeregisterFailed},
	RollbackDeregistered:     {RollbackTagging},
	RollbackDeregisterFailed: {RollbackTagging},
	RollbackTagging:          {RollbackTagged, RollbackTagFailed},
	RollbackTagged:           {RollbackReporting},
	RollbackTagFailed:        {RollbackReporting},
	RollbackReporting:        {RollbackComplete},
	RollbackAborted:          nil,
	RollbackComplete:         nil,
}

// CanTransition reports whether the state machine allows s -> next.
func (s RollbackState) CanTransition(next RollbackState) bool {
	for _, allowed := range rollbackTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s RollbackState) Terminal() bool {
	next, ok := rollbackTransitions[s]
	return ok && len(next) == 0
}

// RollbackStep names an individual rollback side effect.
type RollbackStep string

const (
	StepDeregister RollbackStep = "deregister"
	StepTag        RollbackStep = "tag"
	StepPushTag    RollbackStep = "push_tag"
	StepIssue      RollbackStep = "issue"
	StepNotice     RollbackStep = "notice"
	StepReport     RollbackStep = "report"
)

// RollbackRecord tracks a rollback. Each side-effect flag is set on its own
// as that side effect succeeds, so a record may be partially complete.
type RollbackRecord struct {
	ID              string                  `yaml:"id"`
	Package         string                  `yaml:"package"`
	FromVersion     Version                 `yaml:"from_version"`
	ToVersion       Version                 `yaml:"to_version"`
	Reason          string                  `yaml:"reason"`
	Timestamp       time.Time               `yaml:"timestamp"`
	Operator        string                  `yaml:"operator,omitempty"`
	State           RollbackState           `yaml:"state"`
	RegistryRemoved bool                    `yaml:"registry_removed"`
	TagCreated      bool                    `yaml:"tag_created"`
	TagPushed       bool                    `yaml:"tag_pushed"`
	IssueCreated    bool                    `yaml:"issue_created"`
	TagName         string                  `yaml:"tag,omitempty"`
	IssueURL        string                  `yaml:"issue_url,omitempty"`
	NoticePath      string                  `yaml:"notice_path,omitempty"`
	ReportPath      string                  `yaml:"report_path,omitempty"`
	StepErrors      map[RollbackStep]string `yaml:"step_errors,omitempty"`
}

// NewRollbackRecord creates a record in state Requested.
func NewRollbackRecord(id, pkg string, from, to Version, reason string, at time.Time) *RollbackRecord {
	return &RollbackRecord{
		ID:          id,
		Package:     pkg,
		FromVersion: from,
		ToVersion:   to,
		Reason:      reason,
		Timestamp:   at,
		State:       RollbackRequested,
		StepErrors:  make(map[RollbackStep]string),
	}
}

// Advance moves the record to next, enforcing the transition table.
func (r *RollbackRecord) Advance(next RollbackState) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("illegal rollback transition %s -> %s", r.State, next)
	}
	r.State = next
	return nil
}

// RecordStepError remembers why a side effect did not succeed.
func (r *RollbackRecord) RecordStepError(step RollbackStep, err error) {
	if err == nil {
		return
	}
	if r.StepErrors == nil {
		r.StepErrors = make(map[RollbackStep]string)
	}
	r.StepErrors[step] = err.Error()
}

// Partial reports whether any tracked side effect did not succeed.
func (r *RollbackRecord) Partial() bool {
	_, noticeFailed := r.StepErrors[StepNotice]
	_, reportFailed := r.StepErrors[StepReport]
	return !r.RegistryRemoved || !r.TagCreated || !r.IssueCreated || noticeFailed || reportFailed
}

// ManualStep is an unresolved follow-up the operator must perform.
type ManualStep struct {
	Step        RollbackStep
	Description string
	Cause       string
}

// ManualSteps lists the follow-ups implied by the failed side effects, in
// the order the steps were attempted.
func (r *RollbackRecord) ManualSteps() []ManualStep {
	var steps []ManualStep
	if !r.RegistryRemoved {
		steps = append(steps, ManualStep{
			Step:        StepDeregister,
			Description: fmt.Sprintf("manually remove from registry: %s %s", r.Package, r.FromVersion),
			Cause:       r.StepErrors[StepDeregister],
		})
	}
	if !r.TagCreated {
		steps = append(steps, ManualStep{
			Step:        StepTag,
			Description: fmt.Sprintf("manually create rollback tag for %s", r.FromVersion.Tag()),
			Cause:       r.StepErrors[StepTag],
		})
	} else if !r.TagPushed {
		steps = append(steps, ManualStep{
			Step:        StepPushTag,
			Description: fmt.Sprintf("manually push tag %s", r.TagName),
			Cause:       r.StepErrors[StepPushTag],
		})
	}
	if !r.IssueCreated {
		steps = append(steps, ManualStep{
			Step:        StepIssue,
			Description: "manually file issue",
			Cause:       r.StepErrors[StepIssue],
		})
	}
	if cause, failed := r.StepErrors[StepNotice]; failed {
		steps = append(steps, ManualStep{
			Step:        StepNotice,
			Description: fmt.Sprintf("manually publish the user notice for %s %s", r.Package, r.FromVersion),
			Cause:       cause,
		})
	}
	if cause, failed := r.StepErrors[StepReport]; failed {
		steps = append(steps, ManualStep{
			Step:        StepReport,
			Description: "manually write the post-incident report",
			Cause:       cause,
		})
	}
	return steps
}
