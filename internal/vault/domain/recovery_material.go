package domain

import (
	"strings"
)

// RecoveryMaterial holds what is needed to regain access to an initialized vault
// after a restart: the root token and the unseal key shares.
type RecoveryMaterial struct {
	RootToken  string
	UnsealKeys []string
}

// Validate checks the material is usable for authentication and unsealing.
func (m *RecoveryMaterial) Validate() error {
	if m == nil {
		return ErrRecoveryMaterialCorrupt
	}
	if strings.TrimSpace(m.RootToken) == "" {
		return ErrRecoveryMaterialCorrupt
	}
	if len(m.UnsealKeys) == 0 {
		return ErrRecoveryMaterialCorrupt
	}
	for _, key := range m.UnsealKeys {
		if strings.TrimSpace(key) == "" {
			return ErrRecoveryMaterialCorrupt
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate the cached material.
func (m *RecoveryMaterial) Clone() *RecoveryMaterial {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.UnsealKeys))
	copy(keys, m.UnsealKeys)
	return &RecoveryMaterial{RootToken: m.RootToken, UnsealKeys: keys}
}
