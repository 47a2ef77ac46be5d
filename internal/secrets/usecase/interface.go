// Package usecase defines the interfaces and implementations for secret management use cases.
// A SecretUseCase applies the common contract (input validation, existence checks,
// error taxonomy) on top of whichever Backend the process was configured with.
package usecase

import (
	"context"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// Backend is implemented by every secret store adapter.
//
// Implementations translate their native failures into the errors taxonomy:
// ErrNotFound for an absent secret, ErrBackendUnavailable for transport failures
// and timeouts, ErrBackendRejected for refusals.
type Backend interface {
	// Create stores a new secret. Backends that allow it overwrite an existing value.
	Create(ctx context.Context, secret *secretsDomain.Secret) error
	// Read returns the secret stored under key.Name.
	Read(ctx context.Context, key secretsDomain.SecretKey) (*secretsDomain.Secret, error)
	// Update replaces the value of an existing secret.
	Update(ctx context.Context, secret *secretsDomain.Secret) error
	// Delete removes the secret. Removing an absent secret is not an error unless
	// the backend needs the secret to locate its bindings.
	Delete(ctx context.Context, key secretsDomain.SecretKey) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// SecretUseCase defines the interface for secret management business logic.
type SecretUseCase interface {
	Create(ctx context.Context, secret *secretsDomain.Secret) (*secretsDomain.Secret, error)
	Get(ctx context.Context, key secretsDomain.SecretKey) (*secretsDomain.Secret, error)
	// Update fails with ErrNotFound when the secret does not exist.
	Update(ctx context.Context, secret *secretsDomain.Secret) (*secretsDomain.Secret, error)
	Delete(ctx context.Context, key secretsDomain.SecretKey) error
	// Backend returns the name of the backend serving this use case.
	Backend() string
}
