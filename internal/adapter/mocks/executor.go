// Package mocks provides testify mocks of the adapter interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockExecutor is a mock implementation of adapter.Executor.
type MockExecutor struct {
	mock.Mock
}

// NewMockExecutor creates a MockExecutor whose expectations are asserted
// when the test ends.
func NewMockExecutor(t testingT) *MockExecutor {
	mockExecutor := &MockExecutor{}
	mockExecutor.Mock.Test(t)

	t.Cleanup(func() { mockExecutor.AssertExpectations(t) })

	return mockExecutor
}

// Execute provides a mock function.
func (_m *MockExecutor) Execute(ctx context.Context, program *m.Program, purpose m.Purpose) (m.Execution, error) {
	ret := _m.Called(ctx, program, purpose)

	if rf, ok := ret.Get(0).(func(context.Context, *m.Program, m.Purpose) (m.Execution, error)); ok {
		return rf(ctx, program, purpose)
	}

	return ret.Get(0).(m.Execution), ret.Error(1)
}

// MockTraceReader is a mock implementation of adapter.TraceReader.
type MockTraceReader struct {
	mock.Mock
}

// NewMockTraceReader creates a MockTraceReader whose expectations are
// asserted when the test ends.
func NewMockTraceReader(t testingT) *MockTraceReader {
	mockReader := &MockTraceReader{}
	mockReader.Mock.Test(t)

	t.Cleanup(func() { mockReader.AssertExpectations(t) })

	return mockReader
}

// ReadTrace provides a mock function.
func (_m *MockTraceReader) ReadTrace(ctx context.Context, path m.Path) ([]uint64, error) {
	ret := _m.Called(ctx, path)

	var trace []uint64
	if v := ret.Get(0); v != nil {
		trace = v.([]uint64)
	}

	return trace, ret.Error(1)
}
