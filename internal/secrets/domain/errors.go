// Package domain defines core domain models and errors for secrets.
package domain

import (
	"github.com/allisson/secretbroker/internal/errors"
)

// Secret-specific error definitions.
var (
	// ErrSecretNotFound indicates no secret exists under the requested name.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrSecretNameRequired indicates an empty secret name.
	ErrSecretNameRequired = errors.Wrap(errors.ErrInvalidInput, "secret name is required")

	// ErrSecretValueRequired indicates an empty secret value.
	ErrSecretValueRequired = errors.Wrap(errors.ErrInvalidInput, "secret value is required")

	// ErrServiceRequired indicates a swarm operation without a target service.
	ErrServiceRequired = errors.Wrap(errors.ErrInvalidInput, "service is required")

	// ErrServiceNotFound indicates the target swarm service does not exist.
	ErrServiceNotFound = errors.Wrap(errors.ErrBackendRejected, "service not found")

	// ErrSecretImmutable indicates the backend cannot change an existing secret value.
	ErrSecretImmutable = errors.Wrap(errors.ErrBackendRejected, "secret is immutable in this backend")

	// ErrSecretExists indicates the backend refused to create a secret whose name is taken.
	ErrSecretExists = errors.Wrap(errors.ErrBackendRejected, "secret already exists")
)
