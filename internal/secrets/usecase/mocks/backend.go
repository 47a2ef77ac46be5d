// Package mocks provides mock implementations of the secrets usecase interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// MockBackend is a mock implementation of usecase.Backend.
type MockBackend struct {
	mock.Mock
}

// NewMockBackend creates a mock whose expectations are asserted on cleanup.
func NewMockBackend(t *testing.T) *MockBackend {
	m := &MockBackend{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks the Create method.
func (m *MockBackend) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

// Read mocks the Read method.
func (m *MockBackend) Read(ctx context.Context, key secretsDomain.SecretKey) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

// Update mocks the Update method.
func (m *MockBackend) Update(ctx context.Context, secret *secretsDomain.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockBackend) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Name mocks the Name method.
func (m *MockBackend) Name() string {
	args := m.Called()
	return args.String(0)
}
