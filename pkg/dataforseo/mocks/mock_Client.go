// Package mocks provides test doubles for the dataforseo client.
package mocks

import (
	"context"

	dataforseo "github.com/sells-group/rankrent-cli/pkg/dataforseo"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// KeywordSuggestions provides a mock function with given fields: ctx, req
func (_m *MockClient) KeywordSuggestions(ctx context.Context, req dataforseo.KeywordSuggestionsRequest) (*dataforseo.KeywordSuggestionsResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for KeywordSuggestions")
	}

	var r0 *dataforseo.KeywordSuggestionsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, dataforseo.KeywordSuggestionsRequest) (*dataforseo.KeywordSuggestionsResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dataforseo.KeywordSuggestionsResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// RankedKeywords provides a mock function with given fields: ctx, req
func (_m *MockClient) RankedKeywords(ctx context.Context, req dataforseo.RankedKeywordsRequest) (*dataforseo.RankedKeywordsResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for RankedKeywords")
	}

	var r0 *dataforseo.RankedKeywordsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, dataforseo.RankedKeywordsRequest) (*dataforseo.RankedKeywordsResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dataforseo.RankedKeywordsResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// SERPOrganic provides a mock function with given fields: ctx, req
func (_m *MockClient) SERPOrganic(ctx context.Context, req dataforseo.SERPRequest) (*dataforseo.SERPResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for SERPOrganic")
	}

	var r0 *dataforseo.SERPResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, dataforseo.SERPRequest) (*dataforseo.SERPResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dataforseo.SERPResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
