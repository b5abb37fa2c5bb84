package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSourceControl is a mock implementation of out.SourceControl.
type MockSourceControl struct {
	mock.Mock
}

// NewMockSourceControl creates a mock and asserts its expectations on cleanup.
func NewMockSourceControl(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSourceControl {
	m := &MockSourceControl{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSourceControl) CurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSourceControl) HasUncommittedChanges(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockSourceControl) HeadCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSourceControl) TagExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockSourceControl) CreateTag(ctx context.Context, name, message string) error {
	args := m.Called(ctx, name, message)
	return args.Error(0)
}

func (m *MockSourceControl) PushTag(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockSourceControl) CommitFiles(ctx context.Context, message string, paths ...string) (string, error) {
	args := m.Called(ctx, message, paths)
	return args.String(0), args.Error(1)
}
