package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// MockProgramStore is a mock implementation of adapter.ProgramStore.
type MockProgramStore struct {
	mock.Mock
}

// NewMockProgramStore creates a MockProgramStore whose expectations are
// asserted when the test ends.
func NewMockProgramStore(t testingT) *MockProgramStore {
	mockStore := &MockProgramStore{}
	mockStore.Mock.Test(t)

	t.Cleanup(func() { mockStore.AssertExpectations(t) })

	return mockStore
}

// SaveProgram provides a mock function.
func (_m *MockProgramStore) SaveProgram(ctx context.Context, subdir string, p *m.Program) (m.Path, error) {
	ret := _m.Called(ctx, subdir, p)

	return ret.Get(0).(m.Path), ret.Error(1)
}

// LoadProgram provides a mock function.
func (_m *MockProgramStore) LoadProgram(ctx context.Context, path m.Path) (*m.Program, error) {
	ret := _m.Called(ctx, path)

	var program *m.Program
	if v := ret.Get(0); v != nil {
		program = v.(*m.Program)
	}

	return program, ret.Error(1)
}

// LoadSeeds provides a mock function.
func (_m *MockProgramStore) LoadSeeds(ctx context.Context, dir m.Path) ([]*m.Program, error) {
	ret := _m.Called(ctx, dir)

	var programs []*m.Program
	if v := ret.Get(0); v != nil {
		programs = v.([]*m.Program)
	}

	return programs, ret.Error(1)
}

// LoadState provides a mock function.
func (_m *MockProgramStore) LoadState(ctx context.Context, name string) ([]byte, error) {
	ret := _m.Called(ctx, name)

	var data []byte
	if v := ret.Get(0); v != nil {
		data = v.([]byte)
	}

	return data, ret.Error(1)
}

// SaveState provides a mock function.
func (_m *MockProgramStore) SaveState(ctx context.Context, name string, data []byte) error {
	ret := _m.Called(ctx, name, data)

	return ret.Error(0)
}

// Root provides a mock function.
func (_m *MockProgramStore) Root() m.Path {
	ret := _m.Called()

	return ret.Get(0).(m.Path)
}
