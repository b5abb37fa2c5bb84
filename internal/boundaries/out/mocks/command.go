package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shipit/internal/domain"
)

// MockCommandRunner is a mock implementation of out.CommandRunner.
type MockCommandRunner struct {
	mock.Mock
}

// NewMockCommandRunner creates a mock and asserts its expectations on cleanup.
func NewMockCommandRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCommandRunner {
	m := &MockCommandRunner{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCommandRunner) Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(domain.CommandResult), args.Error(1)
}
