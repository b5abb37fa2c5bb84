package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockConfirmer is a mock implementation of out.Confirmer.
type MockConfirmer struct {
	mock.Mock
}

// NewMockConfirmer creates a mock and asserts its expectations on cleanup.
func NewMockConfirmer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConfirmer {
	m := &MockConfirmer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockConfirmer) Confirm(ctx context.Context, question, detail string) (bool, error) {
	args := m.Called(ctx, question, detail)
	return args.Bool(0), args.Error(1)
}
