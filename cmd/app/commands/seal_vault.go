package commands

import (
	"context"
	"fmt"
	"log/slog"

	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// RunSealVault seals the master vault using the stored root token. Sealing an
// uninitialized or already sealed vault is a no-op.
func RunSealVault(ctx context.Context, lifecycle vaultUseCase.LifecycleUseCase, logger *slog.Logger) error {
	if err := lifecycle.Seal(ctx); err != nil {
		return fmt.Errorf("failed to seal vault: %w", err)
	}

	logger.Info("vault sealed")
	return nil
}
