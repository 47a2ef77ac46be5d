// Package repository implements the secret store backends: the master vault,
// a Kubernetes aggregate Secret object and Docker Swarm secrets.
package repository

import (
	"context"

	apperrors "github.com/allisson/secretbroker/internal/errors"
	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
	vaultService "github.com/allisson/secretbroker/internal/vault/service"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// BackendVault is the name of the master vault backend.
const BackendVault = "vault"

// VaultSecretRepository stores secrets in the master vault key-value mount.
// Every call obtains its session from the lifecycle use case, which unseals
// the vault on first use and applies the configured seal policy.
type VaultSecretRepository struct {
	lifecycle vaultUseCase.LifecycleUseCase
}

// NewVaultSecretRepository creates a new VaultSecretRepository.
func NewVaultSecretRepository(lifecycle vaultUseCase.LifecycleUseCase) *VaultSecretRepository {
	return &VaultSecretRepository{lifecycle: lifecycle}
}

// Name returns the backend name.
func (v *VaultSecretRepository) Name() string {
	return BackendVault
}

// Create writes the secret, overwriting any existing value.
func (v *VaultSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	return v.lifecycle.WithSession(ctx, func(ctx context.Context, client vaultService.SecretClient) error {
		return client.WriteSecret(ctx, secret.Name, secret.Value)
	})
}

// Read returns the secret value and the vault metadata of the entry.
func (v *VaultSecretRepository) Read(
	ctx context.Context,
	key secretsDomain.SecretKey,
) (*secretsDomain.Secret, error) {
	var secret *secretsDomain.Secret

	err := v.lifecycle.WithSession(ctx, func(ctx context.Context, client vaultService.SecretClient) error {
		stored, err := client.ReadSecret(ctx, key.Name)
		if err != nil {
			return translateNotFound(err)
		}

		secret = &secretsDomain.Secret{
			Name:     stored.Name,
			Value:    stored.Value,
			Metadata: stored.Metadata,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return secret, nil
}

// Update overwrites the value of an existing secret.
func (v *VaultSecretRepository) Update(ctx context.Context, secret *secretsDomain.Secret) error {
	return v.lifecycle.WithSession(ctx, func(ctx context.Context, client vaultService.SecretClient) error {
		if _, err := client.ReadSecret(ctx, secret.Name); err != nil {
			return translateNotFound(err)
		}
		return client.WriteSecret(ctx, secret.Name, secret.Value)
	})
}

// Delete removes the secret. Deleting an absent secret succeeds.
func (v *VaultSecretRepository) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	return v.lifecycle.WithSession(ctx, func(ctx context.Context, client vaultService.SecretClient) error {
		return client.DeleteSecret(ctx, key.Name)
	})
}

func translateNotFound(err error) error {
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return secretsDomain.ErrSecretNotFound
	}
	return err
}
