package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// MockSecretUseCase is a mock implementation of usecase.SecretUseCase.
type MockSecretUseCase struct {
	mock.Mock
}

// NewMockSecretUseCase creates a mock whose expectations are asserted on cleanup.
func NewMockSecretUseCase(t *testing.T) *MockSecretUseCase {
	m := &MockSecretUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks the Create method.
func (m *MockSecretUseCase) Create(
	ctx context.Context,
	secret *secretsDomain.Secret,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

// Get mocks the Get method.
func (m *MockSecretUseCase) Get(ctx context.Context, key secretsDomain.SecretKey) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

// Update mocks the Update method.
func (m *MockSecretUseCase) Update(
	ctx context.Context,
	secret *secretsDomain.Secret,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockSecretUseCase) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Backend mocks the Backend method.
func (m *MockSecretUseCase) Backend() string {
	args := m.Called()
	return args.String(0)
}
