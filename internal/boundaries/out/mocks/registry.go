package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shipit/internal/domain"
)

// MockPackageRegistry is a mock implementation of out.PackageRegistry.
type MockPackageRegistry struct {
	mock.Mock
}

// NewMockPackageRegistry creates a mock and asserts its expectations on cleanup.
func NewMockPackageRegistry(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPackageRegistry {
	m := &MockPackageRegistry{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPackageRegistry) Publish(ctx context.Context, target domain.PublishTarget, name string, version domain.Version, artifacts []domain.BuildArtifact, token string) error {
	args := m.Called(ctx, target, name, version, artifacts, token)
	return args.Error(0)
}

func (m *MockPackageRegistry) QueryVersion(ctx context.Context, target domain.PublishTarget, name string, version domain.Version) (*domain.PublishedMetadata, error) {
	args := m.Called(ctx, target, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublishedMetadata), args.Error(1)
}

func (m *MockPackageRegistry) ListVersions(ctx context.Context, target domain.PublishTarget, name string) (domain.DeployedVersionIndex, error) {
	args := m.Called(ctx, target, name)
	return args.Get(0).(domain.DeployedVersionIndex), args.Error(1)
}

func (m *MockPackageRegistry) DeleteVersion(ctx context.Context, target domain.PublishTarget, name string, version domain.Version, token string) error {
	args := m.Called(ctx, target, name, version, token)
	return args.Error(0)
}
