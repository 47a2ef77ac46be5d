// Package usecase implements the master vault lifecycle: initialize-or-load on first
// use, unseal, and the seal policy that governs how long the vault stays open.
package usecase

import (
	"context"

	"github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/service"
)

// RecoveryMaterialRepository persists the root token and unseal keys.
type RecoveryMaterialRepository interface {
	// Save stores both entries atomically.
	Save(ctx context.Context, material *domain.RecoveryMaterial) error
	// Load returns domain.ErrRecoveryMaterialNotFound when nothing was saved yet.
	Load(ctx context.Context) (*domain.RecoveryMaterial, error)
}

// LifecycleUseCase owns the master vault lifecycle. One instance is shared by every
// caller in the process.
type LifecycleUseCase interface {
	// ReadyClient returns an authenticated handle, initializing and unsealing the
	// vault on first use. Later calls return the cached handle.
	ReadyClient(ctx context.Context) (service.SecretClient, error)
	// Initialize initializes the vault with explicit share parameters. It returns
	// domain.ErrAlreadyInitialized when the vault was initialized before.
	Initialize(ctx context.Context, params domain.InitParams) (*domain.InitResult, error)
	// WithSession runs fn against an unsealed, authenticated vault, honoring the seal policy.
	WithSession(ctx context.Context, fn func(ctx context.Context, client service.SecretClient) error) error
	// Status reports the vault state.
	Status(ctx context.Context) (*domain.Status, error)
	// Seal seals the vault and drops the cached handle.
	Seal(ctx context.Context) error
}
