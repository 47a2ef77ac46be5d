// Package mocks provides mock implementations of the vault service interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/service"
)

// MockMasterStore is a mock implementation of service.MasterStore.
type MockMasterStore struct {
	mock.Mock
}

// NewMockMasterStore creates a MockMasterStore whose expectations are asserted on cleanup.
func NewMockMasterStore(t *testing.T) *MockMasterStore {
	m := &MockMasterStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// IsInitialized mocks the IsInitialized method.
func (m *MockMasterStore) IsInitialized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// Initialize mocks the Initialize method.
func (m *MockMasterStore) Initialize(
	ctx context.Context,
	params vaultDomain.InitParams,
) (*vaultDomain.RecoveryMaterial, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.RecoveryMaterial), args.Error(1)
}

// SealStatus mocks the SealStatus method.
func (m *MockMasterStore) SealStatus(ctx context.Context) (*vaultDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Status), args.Error(1)
}

// Unseal mocks the Unseal method.
func (m *MockMasterStore) Unseal(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// Seal mocks the Seal method.
func (m *MockMasterStore) Seal(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Authenticate mocks the Authenticate method.
func (m *MockMasterStore) Authenticate(token string) {
	m.Called(token)
}

// EnsureKVMount mocks the EnsureKVMount method.
func (m *MockMasterStore) EnsureKVMount(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SecretClient mocks the SecretClient method.
func (m *MockMasterStore) SecretClient() service.SecretClient {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(service.SecretClient)
}
