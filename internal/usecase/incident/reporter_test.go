package incident

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/shipit/internal/domain"
)

var at = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newRecord() *domain.RollbackRecord {
	return domain.NewRollbackRecord("rb-1", "demo",
		domain.MustParseVersion("1.2.3"), domain.MustParseVersion("1.2.2"),
		"import error on python 3.9", at.Add(-time.Minute))
}

func newReporter(t *testing.T) *Reporter {
	t.Helper()
	r, err := NewReporter(Config{ETA: 4 * time.Hour, Contact: "oncall@example.com", Labels: []string{"rollback"}})
	require.NoError(t, err)
	return r
}

func TestUserNotice(t *testing.T) {
	notice, err := newReporter(t).UserNotice(newRecord(), at)
	require.NoError(t, err)

	assert.Contains(t, notice, "# demo 1.2.3 has been withdrawn")
	assert.Contains(t, notice, "**Affected version:** 1.2.3")
	assert.Contains(t, notice, `pip install "demo==1.2.2"`)
	assert.Contains(t, notice, "within 4 hours")
	assert.Contains(t, notice, "import error on python 3.9")
	assert.Contains(t, notice, "oncall@example.com")
	assert.Contains(t, notice, "2026-03-14T15:09:26Z")
}

func TestPostIncidentReport_PartialRecordListsManualSteps(t *testing.T) {
	rec := newRecord()
	rec.TagCreated = true
	rec.TagPushed = true
	rec.TagName = "rollback-v1.2.3"
	rec.RecordStepError(domain.StepDeregister, errors.New("503 service unavailable"))
	rec.RecordStepError(domain.StepIssue, domain.ErrTicketingDisabled)

	report, err := newReporter(t).PostIncidentReport(rec, at)
	require.NoError(t, err)

	assert.Contains(t, report, "- [ ] manually remove from registry: demo 1.2.3 (cause: 503 service unavailable)")
	assert.Contains(t, report, "- [ ] manually file issue")
	assert.Contains(t, report, "registry removal: FAILED")
	assert.Contains(t, report, "rollback tag `rollback-v1.2.3`: done")
	assert.NotContains(t, report, "manually create rollback tag")
	assert.NotContains(t, report, "all rollback steps completed")
	assert.Contains(t, report, "| Outcome | complete, 2 manual follow-ups |")
}

func TestPostIncidentReport_FailedNoticeIsAnActionItem(t *testing.T) {
	rec := newRecord()
	rec.RegistryRemoved = true
	rec.TagCreated = true
	rec.TagPushed = true
	rec.IssueCreated = true
	rec.RecordStepError(domain.StepNotice, errors.New("disk full"))

	report, err := newReporter(t).PostIncidentReport(rec, at)
	require.NoError(t, err)

	assert.Contains(t, report, "- [ ] manually publish the user notice for demo 1.2.3 (cause: disk full)")
	assert.Contains(t, report, "| Outcome | complete, 1 manual follow-up |")
	assert.NotContains(t, report, "all rollback steps completed")
}

func TestPostIncidentReport_Complete(t *testing.T) {
	rec := newRecord()
	rec.RegistryRemoved = true
	rec.TagCreated = true
	rec.TagPushed = true
	rec.IssueCreated = true
	rec.IssueURL = "https://example.com/issues/7"
	rec.Operator = "alice"

	report, err := newReporter(t).PostIncidentReport(rec, at)
	require.NoError(t, err)

	assert.Contains(t, report, "- [x] all rollback steps completed")
	assert.Contains(t, report, "| Outcome | complete |")
	assert.Contains(t, report, "| Operator | alice |")
	assert.Contains(t, report, "https://example.com/issues/7")
	assert.NotContains(t, report, "manually")
}

func TestIssueBody(t *testing.T) {
	rec := newRecord()
	rec.RegistryRemoved = true
	rec.Reason = ""

	issue, err := newReporter(t).IssueBody(rec, at)
	require.NoError(t, err)

	assert.Equal(t, "Rollback: demo 1.2.3 withdrawn, use 1.2.2", issue.Title)
	assert.Equal(t, []string{"rollback"}, issue.Labels)
	assert.Contains(t, issue.Body, "**Reason:** not given")
	assert.Contains(t, issue.Body, "| Registry removal | done |")
	assert.Contains(t, issue.Body, "- [ ] manually create rollback tag for v1.2.3")
}
