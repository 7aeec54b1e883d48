package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-enrich/httpclient"
)

// MockHTTPClient provides a testify-based mock implementation of httpclient.Client.
//
// Example usage:
//
//	hc := &mocks.MockHTTPClient{}
//	hc.On("Get", mock.Anything, "/person/lookup", mock.Anything).Return(httpclient.Result{"id": 1}, nil)
//	client := people.NewWithHTTPClient(hc, log)
type MockHTTPClient struct {
	mock.Mock
}

var _ httpclient.Client = (*MockHTTPClient)(nil)

func (m *MockHTTPClient) result(arguments mock.Arguments) (httpclient.Result, error) {
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).(httpclient.Result), arguments.Error(1)
}

// Get implements httpclient.Client
func (m *MockHTTPClient) Get(ctx context.Context, path string, query httpclient.Query) (httpclient.Result, error) {
	return m.result(m.Called(ctx, path, query))
}

// Post implements httpclient.Client
func (m *MockHTTPClient) Post(ctx context.Context, path string, body map[string]any) (httpclient.Result, error) {
	return m.result(m.Called(ctx, path, body))
}

// Put implements httpclient.Client
func (m *MockHTTPClient) Put(ctx context.Context, path string, body map[string]any) (httpclient.Result, error) {
	return m.result(m.Called(ctx, path, body))
}

// Delete implements httpclient.Client
func (m *MockHTTPClient) Delete(ctx context.Context, path string, query httpclient.Query) (httpclient.Result, error) {
	return m.result(m.Called(ctx, path, query))
}

// Do implements httpclient.Client
func (m *MockHTTPClient) Do(ctx context.Context, call *httpclient.Call) (httpclient.Result, error) {
	return m.result(m.Called(ctx, call))
}
