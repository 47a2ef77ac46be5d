package domain

import (
	"github.com/allisson/secretbroker/internal/errors"
)

// Vault lifecycle error definitions.
var (
	// ErrInvalidInitParams indicates the share parameters failed validation.
	ErrInvalidInitParams = errors.Wrap(errors.ErrInvalidInput, "invalid init params")

	// ErrAlreadyInitialized is informational: the vault was initialized before and
	// the stored recovery material was left untouched.
	ErrAlreadyInitialized = errors.Wrap(errors.ErrConflict, "vault already initialized")

	// ErrInitializationFailed indicates the init request could not reach the vault or it failed there.
	ErrInitializationFailed = errors.Wrap(errors.ErrBackendUnavailable, "vault initialization failed")

	// ErrInitializationRejected indicates the vault answered the init request with a client error.
	ErrInitializationRejected = errors.Wrap(errors.ErrBackendRejected, "vault initialization rejected")

	// ErrUnsealFailed indicates the vault stayed sealed after all key shares were submitted.
	ErrUnsealFailed = errors.Wrap(errors.ErrLifecycleFatal, "vault unseal failed")

	// ErrRecoveryMaterialNotFound indicates no recovery material has been persisted.
	ErrRecoveryMaterialNotFound = errors.Wrap(errors.ErrPersistenceFailed, "recovery material not found")

	// ErrRecoveryMaterialCorrupt indicates persisted recovery material is empty or unreadable.
	ErrRecoveryMaterialCorrupt = errors.Wrap(errors.ErrPersistenceFailed, "recovery material corrupt")

	// ErrVaultNotReady indicates the vault handle could not be obtained.
	ErrVaultNotReady = errors.Wrap(errors.ErrLifecycleFatal, "vault not ready")
)

func wrapInvalid(err error) error {
	return errors.Wrap(ErrInvalidInitParams, err.Error())
}
