package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"

	"github.com/bnema/shipit/internal/domain"
)

type mockReleaseService struct {
	mock.Mock
}

func (m *mockReleaseService) Release(ctx context.Context, req domain.ReleaseRequest) (*domain.ReleaseRecord, error) {
	args := m.Called(ctx, req)
	rec, _ := args.Get(0).(*domain.ReleaseRecord)
	return rec, args.Error(1)
}

type mockRollbackService struct {
	mock.Mock
}

func (m *mockRollbackService) Rollback(ctx context.Context, req domain.RollbackRequest) (*domain.RollbackRecord, error) {
	args := m.Called(ctx, req)
	rec, _ := args.Get(0).(*domain.RollbackRecord)
	return rec, args.Error(1)
}

func (m *mockRollbackService) List(ctx context.Context) (domain.DeployedVersionIndex, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.DeployedVersionIndex), args.Error(1)
}

type harness struct {
	release  *mockReleaseService
	rollback *mockRollbackService
	opts     *Options
	calls    int
	err      error
}

func newHarness(t *testing.T) *harness {
	h := &harness{release: &mockReleaseService{}, rollback: &mockRollbackService{}}
	h.release.Test(t)
	h.rollback.Test(t)
	t.Cleanup(func() {
		h.release.AssertExpectations(t)
		h.rollback.AssertExpectations(t)
	})
	return h
}

func (h *harness) factory(_ context.Context, opts Options) (*Services, error) {
	h.calls++
	h.opts = &opts
	if h.err != nil {
		return nil, h.err
	}
	return &Services{Release: h.release, Rollback: h.rollback}, nil
}

func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func builtRecord() *domain.ReleaseRecord {
	return &domain.ReleaseRecord{
		Package:         "demo",
		PreviousVersion: domain.MustParseVersion("1.2.3"),
		Version:         domain.MustParseVersion("1.2.4"),
		Target:          domain.Production,
		State:           domain.StateBuilt,
		DryRun:          true,
		TagName:         "v1.2.4",
		GateReport: domain.GateReport{
			{Name: "tests", Required: true, Status: domain.GatePass},
		},
		Artifacts: []domain.BuildArtifact{
			{Path: "dist/demo-1.2.4.tar.gz", Kind: domain.SourceDist, SizeBytes: 2048},
			{Path: "dist/demo-1.2.4-py3-none-any.whl", Kind: domain.BinaryDist, SizeBytes: 1024},
		},
	}
}
