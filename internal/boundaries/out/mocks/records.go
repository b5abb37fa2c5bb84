package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shipit/internal/domain"
)

// MockRecordStore is a mock implementation of out.RecordStore.
type MockRecordStore struct {
	mock.Mock
}

// NewMockRecordStore creates a mock and asserts its expectations on cleanup.
func NewMockRecordStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRecordStore {
	m := &MockRecordStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRecordStore) SaveRelease(ctx context.Context, rec *domain.ReleaseRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *MockRecordStore) SaveRollback(ctx context.Context, rec *domain.RollbackRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

// MockReportWriter is a mock implementation of out.ReportWriter.
type MockReportWriter struct {
	mock.Mock
}

// NewMockReportWriter creates a mock and asserts its expectations on cleanup.
func NewMockReportWriter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReportWriter {
	m := &MockReportWriter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockReportWriter) WriteReport(ctx context.Context, kind string, from domain.Version, at time.Time, content string) (string, error) {
	args := m.Called(ctx, kind, from, at, content)
	return args.String(0), args.Error(1)
}
