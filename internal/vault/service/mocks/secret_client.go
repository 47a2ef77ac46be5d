package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/secretbroker/internal/vault/service"
)

// MockSecretClient is a mock implementation of service.SecretClient.
type MockSecretClient struct {
	mock.Mock
}

// NewMockSecretClient creates a MockSecretClient whose expectations are asserted on cleanup.
func NewMockSecretClient(t *testing.T) *MockSecretClient {
	m := &MockSecretClient{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ReadSecret mocks the ReadSecret method.
func (m *MockSecretClient) ReadSecret(ctx context.Context, name string) (*service.StoredSecret, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StoredSecret), args.Error(1)
}

// WriteSecret mocks the WriteSecret method.
func (m *MockSecretClient) WriteSecret(ctx context.Context, name string, value []byte) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

// DeleteSecret mocks the DeleteSecret method.
func (m *MockSecretClient) DeleteSecret(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
