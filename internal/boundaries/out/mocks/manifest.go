package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shipit/internal/domain"
)

// MockManifestStore is a mock implementation of out.ManifestStore.
type MockManifestStore struct {
	mock.Mock
}

// NewMockManifestStore creates a mock and asserts its expectations on cleanup.
func NewMockManifestStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockManifestStore {
	m := &MockManifestStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockManifestStore) ReadVersion(ctx context.Context) (domain.Version, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Version), args.Error(1)
}

func (m *MockManifestStore) WriteVersion(ctx context.Context, v domain.Version) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockManifestStore) Path() string {
	args := m.Called()
	return args.String(0)
}
