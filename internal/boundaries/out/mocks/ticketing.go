package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shipit/internal/domain"
)

// MockTicketing is a mock implementation of out.Ticketing.
type MockTicketing struct {
	mock.Mock
}

// NewMockTicketing creates a mock and asserts its expectations on cleanup.
func NewMockTicketing(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTicketing {
	m := &MockTicketing{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTicketing) CreateIssue(ctx context.Context, issue domain.Issue) (string, error) {
	args := m.Called(ctx, issue)
	return args.String(0), args.Error(1)
}
