// Package service wraps the connection to the master vault.
//
// MasterStore exposes the lifecycle calls (init status, initialize, unseal, seal)
// and SecretClient exposes key-value access to named secrets once the vault has
// been unsealed and authenticated. Native vault errors never leave this package:
// they are translated to the internal/errors taxonomy first.
package service

import (
	"context"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// StoredSecret is a secret value read from the vault.
type StoredSecret struct {
	Name     string
	Value    []byte
	Metadata map[string]string
}

// SecretClient provides authenticated access to named vault entries.
type SecretClient interface {
	// ReadSecret returns errors.ErrNotFound when the entry does not exist.
	ReadSecret(ctx context.Context, name string) (*StoredSecret, error)
	// WriteSecret creates or overwrites the entry.
	WriteSecret(ctx context.Context, name string, value []byte) error
	// DeleteSecret succeeds whether or not the entry exists.
	DeleteSecret(ctx context.Context, name string) error
}

// MasterStore is the lifecycle surface of the master vault.
type MasterStore interface {
	IsInitialized(ctx context.Context) (bool, error)
	Initialize(ctx context.Context, params vaultDomain.InitParams) (*vaultDomain.RecoveryMaterial, error)
	SealStatus(ctx context.Context) (*vaultDomain.Status, error)
	Unseal(ctx context.Context, keys []string) error
	Seal(ctx context.Context) error
	Authenticate(token string)
	EnsureKVMount(ctx context.Context) error
	SecretClient() SecretClient
}

// KMSService opens keepers used to encrypt recovery material at rest.
type KMSService interface {
	// OpenKeeper opens a keeper for keyURI (base64key://, hashivault://, awskms://, gcpkms://,
	// azurekeyvault://).
	OpenKeeper(ctx context.Context, keyURI string) (vaultDomain.KMSKeeper, error)
}
