package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbackRecordTransitions(t *testing.T) {
	rec := NewRollbackRecord("id", "demo", MustParseVersion("1.2.3"), MustParseVersion("1.2.2"), "broken import", time.Now())
	assert.Equal(t, RollbackRequested, rec.State)

	require.NoError(t, rec.Advance(RollbackConfirming))
	require.NoError(t, rec.Advance(RollbackConfirmed))
	require.NoError(t, rec.Advance(RollbackDeregistering))
	require.NoError(t, rec.Advance(RollbackDeregisterFailed))
	// a failed deregistration still continues to tagging
	require.NoError(t, rec.Advance(RollbackTagging))
	require.NoError(t, rec.Advance(RollbackTagFailed))
	require.NoError(t, rec.Advance(RollbackReporting))
	require.NoError(t, rec.Advance(RollbackComplete))
	assert.True(t, rec.State.Terminal())
}

func TestRollbackRecordAbort(t *testing.T) {
	rec := NewRollbackRecord("id", "demo", MustParseVersion("1.2.3"), MustParseVersion("1.2.2"), "", time.Now())
	require.NoError(t, rec.Advance(RollbackConfirming))
	require.NoError(t, rec.Advance(RollbackAborted))
	assert.True(t, rec.State.Terminal())
	assert.Error(t, rec.Advance(RollbackDeregistering))
}

func TestRollbackRecordManualSteps(t *testing.T) {
	rec := NewRollbackRecord("id", "demo", MustParseVersion("1.2.3"), MustParseVersion("1.2.2"), "", time.Now())
	rec.TagCreated = true
	rec.TagPushed = true
	rec.TagName = "rollback-v1.2.3"
	rec.RecordStepError(StepDeregister, errors.New("403 forbidden"))
	rec.RecordStepError(StepIssue, ErrTicketingDisabled)
	rec.RecordStepError(StepTag, nil)

	assert.True(t, rec.Partial())
	steps := rec.ManualSteps()
	require.Len(t, steps, 2)
	assert.Equal(t, StepDeregister, steps[0].Step)
	assert.Contains(t, steps[0].Description, "manually remove from registry")
	assert.Equal(t, "403 forbidden", steps[0].Cause)
	assert.Equal(t, StepIssue, steps[1].Step)
	assert.Contains(t, steps[1].Description, "manually file issue")
	assert.NotContains(t, rec.StepErrors, StepTag)
}

func TestRollbackRecordUnpushedTag(t *testing.T) {
	rec := NewRollbackRecord("id", "demo", MustParseVersion("1.2.3"), MustParseVersion("1.2.2"), "", time.Now())
	rec.RegistryRemoved = true
	rec.IssueCreated = true
	rec.TagCreated = true
	rec.TagName = "rollback-v1.2.3"

	assert.False(t, rec.Partial())
	steps := rec.ManualSteps()
	require.Len(t, steps, 1)
	assert.Equal(t, StepPushTag, steps[0].Step)
	assert.Contains(t, steps[0].Description, "rollback-v1.2.3")
}

func TestRollbackRecordDocumentFailures(t *testing.T) {
	rec := NewRollbackRecord("id", "demo", MustParseVersion("1.2.3"), MustParseVersion("1.2.2"), "", time.Now())
	rec.RegistryRemoved = true
	rec.TagCreated = true
	rec.TagPushed = true
	rec.IssueCreated = true
	require.False(t, rec.Partial())
	require.Empty(t, rec.ManualSteps())

	rec.RecordStepError(StepNotice, errors.New("disk full"))
	rec.RecordStepError(StepReport, errors.New("read-only file system"))

	assert.True(t, rec.Partial())
	steps := rec.ManualSteps()
	require.Len(t, steps, 2)
	assert.Equal(t, StepNotice, steps[0].Step)
	assert.Contains(t, steps[0].Description, "user notice for demo 1.2.3")
	assert.Equal(t, "disk full", steps[0].Cause)
	assert.Equal(t, StepReport, steps[1].Step)
	assert.Equal(t, "read-only file system", steps[1].Cause)
}

func TestErrorClassification(t *testing.T) {
	base := Configuration("load token", ErrMissingToken, "export SHIPIT_REGISTRY_TOKEN and re-run")
	wrapped := NewError(KindPublish, "publish", base, "")

	assert.Equal(t, KindPublish, KindOf(wrapped))
	assert.Equal(t, "export SHIPIT_REGISTRY_TOKEN and re-run", HintOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrMissingToken)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Empty(t, HintOf(errors.New("plain")))
	assert.Nil(t, NewError(KindGate, "noop", nil, ""))
	assert.Equal(t, "gate failure", KindGate.String())
}
