// Package mocks provides mock implementations of the vault usecase interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// MockRecoveryMaterialRepository is a mock implementation of usecase.RecoveryMaterialRepository.
type MockRecoveryMaterialRepository struct {
	mock.Mock
}

// NewMockRecoveryMaterialRepository creates a mock whose expectations are asserted on cleanup.
func NewMockRecoveryMaterialRepository(t *testing.T) *MockRecoveryMaterialRepository {
	m := &MockRecoveryMaterialRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Save mocks the Save method.
func (m *MockRecoveryMaterialRepository) Save(ctx context.Context, material *vaultDomain.RecoveryMaterial) error {
	args := m.Called(ctx, material)
	return args.Error(0)
}

// Load mocks the Load method.
func (m *MockRecoveryMaterialRepository) Load(ctx context.Context) (*vaultDomain.RecoveryMaterial, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.RecoveryMaterial), args.Error(1)
}
