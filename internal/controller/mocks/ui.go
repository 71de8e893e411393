// Package mocks provides testify mocks of the controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"distfuzz.dev/pkg/distfuzz/internal/controller"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// MockUI is a mock implementation of controller.UI.
type MockUI struct {
	mock.Mock
}

// NewMockUI creates a MockUI whose expectations are asserted when the test
// ends.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	mockUI := &MockUI{}
	mockUI.Mock.Test(t)

	t.Cleanup(func() { mockUI.AssertExpectations(t) })

	return mockUI
}

// Start provides a mock function.
func (_m *MockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	ret := _m.Called(ctx, options)

	return ret.Error(0)
}

// Close provides a mock function.
func (_m *MockUI) Close(ctx context.Context) {
	_m.Called(ctx)
}

// Wait provides a mock function.
func (_m *MockUI) Wait(ctx context.Context) {
	_m.Called(ctx)
}

// DisplayRunInfo provides a mock function.
func (_m *MockUI) DisplayRunInfo(ctx context.Context, info controller.RunInfo) {
	_m.Called(ctx, info)
}

// DisplayProgress provides a mock function.
func (_m *MockUI) DisplayProgress(ctx context.Context, stats m.Stats) {
	_m.Called(ctx, stats)
}

// DisplaySummary provides a mock function.
func (_m *MockUI) DisplaySummary(ctx context.Context, stats m.Stats) {
	_m.Called(ctx, stats)
}

// DisplayCrashes provides a mock function.
func (_m *MockUI) DisplayCrashes(ctx context.Context, logs []controller.CrashLog) error {
	ret := _m.Called(ctx, logs)

	return ret.Error(0)
}

// DisplayCrash provides a mock function.
func (_m *MockUI) DisplayCrash(ctx context.Context, record m.CrashRecord) error {
	ret := _m.Called(ctx, record)

	return ret.Error(0)
}

// DisplayDistanceMap provides a mock function.
func (_m *MockUI) DisplayDistanceMap(ctx context.Context, summary controller.DistanceMapSummary) error {
	ret := _m.Called(ctx, summary)

	return ret.Error(0)
}
