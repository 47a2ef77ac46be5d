package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/secretbroker/internal/database"
	apperrors "github.com/allisson/secretbroker/internal/errors"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// MySQLRecoveryMaterialRepository stores recovery material in the
// recovery_material table of a MySQL database.
//
// Database schema requirements:
//   - name: VARCHAR(64) PRIMARY KEY
//   - value: TEXT
//   - updated_at: DATETIME(6)
type MySQLRecoveryMaterialRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewMySQLRecoveryMaterialRepository creates a new MySQL recovery material repository.
func NewMySQLRecoveryMaterialRepository(
	db *sql.DB,
	txManager database.TxManager,
) *MySQLRecoveryMaterialRepository {
	return &MySQLRecoveryMaterialRepository{db: db, txManager: txManager}
}

// Save upserts both entries inside one transaction.
func (m *MySQLRecoveryMaterialRepository) Save(ctx context.Context, material *vaultDomain.RecoveryMaterial) error {
	if err := material.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO recovery_material (name, value, updated_at)
			  VALUES (?, ?, ?)
			  ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`

	now := time.Now().UTC()
	err := m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		querier := database.GetTx(txCtx, m.db)
		if _, err := querier.ExecContext(
			txCtx, query, unsealKeysEntry, encodeUnsealKeys(material.UnsealKeys), now,
		); err != nil {
			return apperrors.Wrap(err, "failed to save unseal keys")
		}
		if _, err := querier.ExecContext(txCtx, query, rootTokenEntry, material.RootToken, now); err != nil {
			return apperrors.Wrap(err, "failed to save root token")
		}
		return nil
	})
	if err != nil {
		return apperrors.Join(apperrors.ErrPersistenceFailed, err)
	}
	return nil
}

// Load reads both entries.
func (m *MySQLRecoveryMaterialRepository) Load(ctx context.Context) (*vaultDomain.RecoveryMaterial, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT name, value FROM recovery_material WHERE name IN (?, ?)`

	rows, err := querier.QueryContext(ctx, query, rootTokenEntry, unsealKeysEntry)
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrPersistenceFailed, apperrors.Wrap(err, "failed to load recovery material"))
	}
	return scanRecoveryMaterial(rows)
}
