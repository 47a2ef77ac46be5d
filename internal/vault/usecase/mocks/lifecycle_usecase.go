package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/service"
)

// MockLifecycleUseCase is a mock implementation of the vault LifecycleUseCase.
// WithSession invokes the session function with the client returned by the
// expectation, so callers can combine it with a mock SecretClient.
type MockLifecycleUseCase struct {
	mock.Mock
}

// NewMockLifecycleUseCase creates a mock whose expectations are asserted on cleanup.
func NewMockLifecycleUseCase(t *testing.T) *MockLifecycleUseCase {
	m := &MockLifecycleUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ReadyClient mocks the ReadyClient method.
func (m *MockLifecycleUseCase) ReadyClient(ctx context.Context) (service.SecretClient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(service.SecretClient), args.Error(1)
}

// Initialize mocks the Initialize method.
func (m *MockLifecycleUseCase) Initialize(
	ctx context.Context,
	params vaultDomain.InitParams,
) (*vaultDomain.InitResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.InitResult), args.Error(1)
}

// WithSession mocks the WithSession method. The first return value is the client
// handed to fn; when it is nil fn is not called and the second value is returned.
func (m *MockLifecycleUseCase) WithSession(
	ctx context.Context,
	fn func(ctx context.Context, client service.SecretClient) error,
) error {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return args.Error(1)
	}
	return fn(ctx, args.Get(0).(service.SecretClient))
}

// Status mocks the Status method.
func (m *MockLifecycleUseCase) Status(ctx context.Context) (*vaultDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Status), args.Error(1)
}

// Seal mocks the Seal method.
func (m *MockLifecycleUseCase) Seal(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
