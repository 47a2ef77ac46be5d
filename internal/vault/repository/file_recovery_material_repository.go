package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/allisson/secretbroker/internal/errors"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

const recoveryFileMode = 0o600

// FileRecoveryMaterialRepository stores recovery material as two files in a directory:
// root_token holds the token and unseal_keys holds one key share per line.
type FileRecoveryMaterialRepository struct {
	dir string
}

// NewFileRecoveryMaterialRepository creates a file-backed store rooted at dir.
func NewFileRecoveryMaterialRepository(dir string) *FileRecoveryMaterialRepository {
	return &FileRecoveryMaterialRepository{dir: dir}
}

// Save writes both files. Each value is first written to a temporary file in the same
// directory and only renamed into place once both temporary files are durable. A failed
// rename removes the files already moved, and the directory is synced after the renames.
// A crash between the two renames can still leave one file behind; Load reports that
// as ErrRecoveryMaterialCorrupt.
func (r *FileRecoveryMaterialRepository) Save(ctx context.Context, material *vaultDomain.RecoveryMaterial) error {
	if err := material.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Join(apperrors.ErrPersistenceFailed, err)
	}

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return apperrors.Join(apperrors.ErrPersistenceFailed, fmt.Errorf("failed to create recovery dir: %w", err))
	}

	entries := []struct {
		name  string
		value string
	}{
		{name: unsealKeysEntry, value: encodeUnsealKeys(material.UnsealKeys)},
		{name: rootTokenEntry, value: material.RootToken + "\n"},
	}

	temps := make([]string, 0, len(entries))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}

	for _, entry := range entries {
		tmp, err := writeTempFile(r.dir, entry.name, entry.value)
		if err != nil {
			cleanup()
			return apperrors.Join(apperrors.ErrPersistenceFailed, err)
		}
		temps = append(temps, tmp)
	}

	placed := make([]string, 0, len(entries))
	for i, entry := range entries {
		target := filepath.Join(r.dir, entry.name)
		if err := os.Rename(temps[i], target); err != nil {
			cleanup()
			for _, p := range placed {
				_ = os.Remove(p)
			}
			return apperrors.Join(
				apperrors.ErrPersistenceFailed,
				fmt.Errorf("failed to move %s into place: %w", entry.name, err),
			)
		}
		placed = append(placed, target)
	}

	if err := syncDir(r.dir); err != nil {
		return apperrors.Join(apperrors.ErrPersistenceFailed, err)
	}
	return nil
}

// Load reads both files. When neither exists ErrRecoveryMaterialNotFound is returned;
// a single missing or empty file is reported as ErrRecoveryMaterialCorrupt.
func (r *FileRecoveryMaterialRepository) Load(ctx context.Context) (*vaultDomain.RecoveryMaterial, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Join(apperrors.ErrPersistenceFailed, err)
	}

	rootToken, tokenErr := os.ReadFile(filepath.Join(r.dir, rootTokenEntry))
	unsealKeys, keysErr := os.ReadFile(filepath.Join(r.dir, unsealKeysEntry))

	tokenMissing := errors.Is(tokenErr, fs.ErrNotExist)
	keysMissing := errors.Is(keysErr, fs.ErrNotExist)

	switch {
	case tokenMissing && keysMissing:
		return nil, vaultDomain.ErrRecoveryMaterialNotFound
	case tokenMissing || keysMissing:
		return nil, vaultDomain.ErrRecoveryMaterialCorrupt
	case tokenErr != nil:
		return nil, apperrors.Join(apperrors.ErrPersistenceFailed, tokenErr)
	case keysErr != nil:
		return nil, apperrors.Join(apperrors.ErrPersistenceFailed, keysErr)
	}

	return materialFromEntries(string(rootToken), string(unsealKeys))
}

func writeTempFile(dir, name, value string) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmp := f.Name()

	if err := f.Chmod(recoveryFileMode); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to chmod temp file for %s: %w", name, err)
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	return tmp, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open recovery dir: %w", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync recovery dir: %w", err)
	}
	return nil
}
