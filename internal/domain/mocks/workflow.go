// Package mocks provides testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"distfuzz.dev/pkg/distfuzz/internal/domain"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// MockWorkflow is a mock implementation of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted
// when the test ends.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mockWorkflow := &MockWorkflow{}
	mockWorkflow.Mock.Test(t)

	t.Cleanup(func() { mockWorkflow.AssertExpectations(t) })

	return mockWorkflow
}

// MockWorkflow_Expecter gives typed access to expectations.
type MockWorkflow_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns a typed expecter.
func (_m *MockWorkflow) EXPECT() *MockWorkflow_Expecter {
	return &MockWorkflow_Expecter{mock: &_m.Mock}
}

// Fuzz provides a mock function.
func (_m *MockWorkflow) Fuzz(ctx context.Context, args domain.FuzzArgs) (m.Stats, error) {
	ret := _m.Called(ctx, args)

	if len(ret) == 0 {
		panic("no return value specified for Fuzz")
	}

	var stats m.Stats
	if rf, ok := ret.Get(0).(func(context.Context, domain.FuzzArgs) m.Stats); ok {
		stats = rf(ctx, args)
	} else {
		stats = ret.Get(0).(m.Stats)
	}

	var err error
	if rf, ok := ret.Get(1).(func(context.Context, domain.FuzzArgs) error); ok {
		err = rf(ctx, args)
	} else {
		err = ret.Error(1)
	}

	return stats, err
}

// MockWorkflow_Fuzz_Call is a typed wrapper around mock.Call.
type MockWorkflow_Fuzz_Call struct {
	*mock.Call
}

// Fuzz is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Fuzz(ctx interface{}, args interface{}) *MockWorkflow_Fuzz_Call {
	return &MockWorkflow_Fuzz_Call{Call: _e.mock.On("Fuzz", ctx, args)}
}

// Return sets the values returned by Fuzz.
func (_c *MockWorkflow_Fuzz_Call) Return(stats m.Stats, err error) *MockWorkflow_Fuzz_Call {
	_c.Call.Return(stats, err)
	return _c
}

// Run sets a handler invoked with the Fuzz arguments.
func (_c *MockWorkflow_Fuzz_Call) Run(run func(ctx context.Context, args domain.FuzzArgs)) *MockWorkflow_Fuzz_Call {
	_c.Call.Run(func(callArgs mock.Arguments) {
		run(callArgs.Get(0).(context.Context), callArgs.Get(1).(domain.FuzzArgs))
	})

	return _c
}
