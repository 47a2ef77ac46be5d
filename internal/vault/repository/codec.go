// Package repository persists vault recovery material.
//
// Recovery material is two entries: the root token and the newline-delimited
// unseal key shares. The SQL stores write both rows in one transaction. The file
// store stages both values in synced temporary files before renaming them, so a
// failed write leaves neither file; only a crash between the two renames can leave
// one entry alone, which Load reports as corrupt rather than missing.
//
// Stores:
//   - FileRecoveryMaterialRepository: two files in a directory, written with mode 0600
//   - PostgreSQLRecoveryMaterialRepository / MySQLRecoveryMaterialRepository: two rows
//     of the recovery_material table written in one transaction
//   - EncryptedRecoveryMaterialRepository: decorator encrypting values with a KMS keeper
package repository

import (
	"strings"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// Entry names shared by every store.
const (
	rootTokenEntry  = "root_token"
	unsealKeysEntry = "unseal_keys"
)

func encodeUnsealKeys(keys []string) string {
	return strings.Join(keys, "\n") + "\n"
}

func decodeUnsealKeys(raw string) []string {
	var keys []string
	for _, line := range strings.Split(raw, "\n") {
		if key := strings.TrimSpace(line); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// materialFromEntries rebuilds and validates recovery material from stored values.
func materialFromEntries(rootToken, unsealKeys string) (*vaultDomain.RecoveryMaterial, error) {
	material := &vaultDomain.RecoveryMaterial{
		RootToken:  strings.TrimSpace(rootToken),
		UnsealKeys: decodeUnsealKeys(unsealKeys),
	}
	if err := material.Validate(); err != nil {
		return nil, err
	}
	return material, nil
}
