package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/secretbroker/internal/database"
	apperrors "github.com/allisson/secretbroker/internal/errors"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// PostgreSQLRecoveryMaterialRepository stores recovery material in the
// recovery_material table of a PostgreSQL database.
//
// Database schema requirements:
//   - name: VARCHAR(64) PRIMARY KEY ("root_token" or "unseal_keys")
//   - value: TEXT
//   - updated_at: TIMESTAMP WITH TIME ZONE
type PostgreSQLRecoveryMaterialRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewPostgreSQLRecoveryMaterialRepository creates a new PostgreSQL recovery material repository.
func NewPostgreSQLRecoveryMaterialRepository(
	db *sql.DB,
	txManager database.TxManager,
) *PostgreSQLRecoveryMaterialRepository {
	return &PostgreSQLRecoveryMaterialRepository{db: db, txManager: txManager}
}

// Save upserts both entries inside one transaction.
func (p *PostgreSQLRecoveryMaterialRepository) Save(
	ctx context.Context,
	material *vaultDomain.RecoveryMaterial,
) error {
	if err := material.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO recovery_material (name, value, updated_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		querier := database.GetTx(txCtx, p.db)
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
func (p *PostgreSQLRecoveryMaterialRepository) Load(ctx context.Context) (*vaultDomain.RecoveryMaterial, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT name, value FROM recovery_material WHERE name IN ($1, $2)`

	rows, err := querier.QueryContext(ctx, query, rootTokenEntry, unsealKeysEntry)
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrPersistenceFailed, apperrors.Wrap(err, "failed to load recovery material"))
	}
	return scanRecoveryMaterial(rows)
}

// scanRecoveryMaterial is shared by the SQL stores.
func scanRecoveryMaterial(rows *sql.Rows) (*vaultDomain.RecoveryMaterial, error) {
	defer func() {
		_ = rows.Close()
	}()

	values := make(map[string]string, 2)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, apperrors.Join(apperrors.ErrPersistenceFailed, apperrors.Wrap(err, "failed to scan recovery material"))
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Join(apperrors.ErrPersistenceFailed, apperrors.Wrap(err, "failed to iterate recovery material"))
	}

	rootToken, hasToken := values[rootTokenEntry]
	unsealKeys, hasKeys := values[unsealKeysEntry]
	switch {
	case !hasToken && !hasKeys:
		return nil, vaultDomain.ErrRecoveryMaterialNotFound
	case !hasToken || !hasKeys:
		return nil, vaultDomain.ErrRecoveryMaterialCorrupt
	}

	return materialFromEntries(rootToken, unsealKeys)
}
