package repository

import (
	"context"
	"encoding/base64"
	"fmt"

	apperrors "github.com/allisson/secretbroker/internal/errors"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// recoveryMaterialStore is the contract shared by the plain stores.
type recoveryMaterialStore interface {
	Save(ctx context.Context, material *vaultDomain.RecoveryMaterial) error
	Load(ctx context.Context) (*vaultDomain.RecoveryMaterial, error)
}

// EncryptedRecoveryMaterialRepository encrypts the root token and every unseal key
// with a KMS keeper before handing the material to the wrapped store. Stored values
// are base64 encoded ciphertexts.
type EncryptedRecoveryMaterialRepository struct {
	next   recoveryMaterialStore
	keeper vaultDomain.KMSKeeper
}

// NewEncryptedRecoveryMaterialRepository wraps next with keeper-based encryption.
func NewEncryptedRecoveryMaterialRepository(
	next recoveryMaterialStore,
	keeper vaultDomain.KMSKeeper,
) *EncryptedRecoveryMaterialRepository {
	return &EncryptedRecoveryMaterialRepository{next: next, keeper: keeper}
}

// Save encrypts then stores.
func (e *EncryptedRecoveryMaterialRepository) Save(ctx context.Context, material *vaultDomain.RecoveryMaterial) error {
	if err := material.Validate(); err != nil {
		return err
	}

	rootToken, err := e.encrypt(ctx, material.RootToken)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(material.UnsealKeys))
	for _, key := range material.UnsealKeys {
		encrypted, err := e.encrypt(ctx, key)
		if err != nil {
			return err
		}
		keys = append(keys, encrypted)
	}

	return e.next.Save(ctx, &vaultDomain.RecoveryMaterial{RootToken: rootToken, UnsealKeys: keys})
}

// Load reads then decrypts. Values that fail to decrypt are reported as corrupt.
func (e *EncryptedRecoveryMaterialRepository) Load(ctx context.Context) (*vaultDomain.RecoveryMaterial, error) {
	stored, err := e.next.Load(ctx)
	if err != nil {
		return nil, err
	}

	rootToken, err := e.decrypt(ctx, stored.RootToken)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(stored.UnsealKeys))
	for _, key := range stored.UnsealKeys {
		decrypted, err := e.decrypt(ctx, key)
		if err != nil {
			return nil, err
		}
		keys = append(keys, decrypted)
	}

	material := &vaultDomain.RecoveryMaterial{RootToken: rootToken, UnsealKeys: keys}
	if err := material.Validate(); err != nil {
		return nil, err
	}
	return material, nil
}

func (e *EncryptedRecoveryMaterialRepository) encrypt(ctx context.Context, value string) (string, error) {
	ciphertext, err := e.keeper.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", apperrors.Join(apperrors.ErrPersistenceFailed, fmt.Errorf("failed to encrypt recovery material: %w", err))
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (e *EncryptedRecoveryMaterialRepository) decrypt(ctx context.Context, value string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", apperrors.Wrap(vaultDomain.ErrRecoveryMaterialCorrupt, "invalid ciphertext encoding")
	}
	plaintext, err := e.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", apperrors.Wrap(vaultDomain.ErrRecoveryMaterialCorrupt, fmt.Sprintf("failed to decrypt: %v", err))
	}
	return string(plaintext), nil
}
