package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bnema/shipit/internal/domain"
)

func loadRecord(t *testing.T, path string, rec any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, rec))
}

var at = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func TestFileName(t *testing.T) {
	assert.Equal(t, "notice-v1.2.3-20260314T150926Z.md", FileName("notice", domain.MustParseVersion("1.2.3"), at, ".md"))
	assert.Equal(t, "post-incident-v2.0.0-rc.1-20260314T150926Z.md",
		FileName("post incident", domain.MustParseVersion("2.0.0-rc.1"), at, ".md"))
}

func TestWriteReport_NeverOverwrites(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "reports"))
	require.NoError(t, err)
	ctx := context.Background()
	v := domain.MustParseVersion("1.2.3")

	first, err := store.WriteReport(ctx, "notice", v, at, "first")
	require.NoError(t, err)
	second, err := store.WriteReport(ctx, "notice", v, at, "second")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "notice-v1.2.3-20260314T150926Z.md", filepath.Base(first))
	assert.Equal(t, "notice-v1.2.3-20260314T150926Z-2.md", filepath.Base(second))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestSaveRollbackRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	rec := domain.NewRollbackRecord("rb-1", "demo", domain.MustParseVersion("1.2.3"), domain.MustParseVersion("1.2.2"), "import error", at)
	rec.TagCreated = true
	rec.TagName = "rollback-v1.2.3"
	rec.RecordStepError(domain.StepDeregister, domain.ErrAuth)

	path, err := store.SaveRollback(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "rollback-v1.2.3-20260314T150926Z.yaml", filepath.Base(path))

	var back domain.RollbackRecord
	loadRecord(t, path, &back)
	assert.Equal(t, rec.FromVersion, back.FromVersion)
	assert.Equal(t, rec.ToVersion, back.ToVersion)
	assert.True(t, back.TagCreated)
	assert.False(t, back.RegistryRemoved)
	assert.Equal(t, domain.ErrAuth.Error(), back.StepErrors[domain.StepDeregister])
}

func TestSaveRelease(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	rec := domain.NewReleaseRecord("rel-1", "demo", domain.Staging, true, at)
	rec.Version = domain.MustParseVersion("1.2.4")
	rec.GateReport = domain.GateReport{{Name: "tests", Required: true, Status: domain.GatePass}}

	path, err := store.SaveRelease(context.Background(), rec)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1.2.4")
	assert.Contains(t, string(data), "publish_target: staging")

	var back domain.ReleaseRecord
	loadRecord(t, path, &back)
	assert.Equal(t, rec.Version, back.Version)
	assert.True(t, back.DryRun)
	assert.Len(t, back.GateReport, 1)
}
