package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/nodeflow/pkg/protocol"
)

// MockStepRunner is a mock implementation of protocol.StepRunner. Run and
// Generate invoke fn unless the expectation returns a value via Return.
type MockStepRunner struct {
	mock.Mock
}

var _ protocol.StepRunner = (*MockStepRunner)(nil)

func (m *MockStepRunner) Run(ctx context.Context, name string, fn protocol.StepFunc) (any, error) {
	args := m.Called(ctx, name, fn)
	if len(args) == 0 {
		return fn(ctx)
	}

	return args.Get(0), args.Error(1)
}

func (m *MockStepRunner) Generate(ctx context.Context, name string, fn protocol.StepFunc) (any, error) {
	args := m.Called(ctx, name, fn)
	if len(args) == 0 {
		return fn(ctx)
	}

	return args.Get(0), args.Error(1)
}

func (m *MockStepRunner) Sleep(ctx context.Context, name string, d time.Duration) error {
	args := m.Called(ctx, name, d)

	return args.Error(0)
}
