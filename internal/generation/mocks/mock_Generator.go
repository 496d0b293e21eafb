// Package mocks provides test doubles for the generation gateway.
package mocks

import (
	"context"
	"encoding/json"

	mock "github.com/stretchr/testify/mock"
)

// MockGenerator is a mock type for the Generator interface.
type MockGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, prompt, label
func (_m *MockGenerator) Generate(ctx context.Context, prompt string, label string) (json.RawMessage, error) {
	ret := _m.Called(ctx, prompt, label)

	if len(ret) == 0 {
		panic("no return value specified for Generate")
	}

	var r0 json.RawMessage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (json.RawMessage, error)); ok {
		return rf(ctx, prompt, label)
	}
	if ret.Get(0) != nil {
		switch v := ret.Get(0).(type) {
		case json.RawMessage:
			r0 = v
		case string:
			r0 = json.RawMessage(v)
		}
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockGenerator creates a new instance of MockGenerator.
func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerator {
	m := &MockGenerator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
