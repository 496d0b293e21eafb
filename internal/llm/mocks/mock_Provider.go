// Package mocks provides test doubles for the llm provider.
package mocks

import (
	"context"

	llm "github.com/sells-group/rankrent-cli/internal/llm"
	mock "github.com/stretchr/testify/mock"
)

// MockProvider is a mock type for the Provider interface.
type MockProvider struct {
	mock.Mock
}

// Name returns a fixed provider name so callers can log without an expectation.
func (_m *MockProvider) Name() string {
	return "mock"
}

// Complete provides a mock function with given fields: ctx, prompt
func (_m *MockProvider) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	ret := _m.Called(ctx, prompt)

	if len(ret) == 0 {
		panic("no return value specified for Complete")
	}

	var r0 *llm.Completion
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*llm.Completion, error)); ok {
		return rf(ctx, prompt)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*llm.Completion)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockProvider creates a new instance of MockProvider.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	m := &MockProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
