package service

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/secretbroker/internal/errors"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"

	// Keeper drivers accepted for RECOVERY_KMS_KEY_URI.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// recoveryKeeperService opens the keeper that seals the root token and unseal keys
// before a recovery store persists them.
type recoveryKeeperService struct{}

// NewRecoveryKeeperService returns the KMSService backing encrypted recovery stores.
func NewRecoveryKeeperService() KMSService {
	return &recoveryKeeperService{}
}

// OpenKeeper resolves keyURI to a recovery material keeper. A blank or scheme-less
// URI is a configuration error and never reaches a provider.
func (s *recoveryKeeperService) OpenKeeper(ctx context.Context, keyURI string) (vaultDomain.KMSKeeper, error) {
	keyURI = strings.TrimSpace(keyURI)
	if keyURI == "" || !strings.Contains(keyURI, "://") {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "recovery keeper uri %q has no scheme", keyURI)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open recovery keeper: %w", err)
	}
	return keeper, nil
}
