package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// RunInitVault initializes the master vault with the given share layout and persists
// the recovery material. A nil shares or threshold falls back to defaults; explicit values
// are validated as given. The root token and unseal keys are never printed; they only go
// to the recovery material store.
func RunInitVault(
	ctx context.Context,
	lifecycle vaultUseCase.LifecycleUseCase,
	logger *slog.Logger,
	writer io.Writer,
	defaults vaultDomain.InitParams,
	shares, threshold *int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	params := defaults
	if shares != nil {
		params.Shares = *shares
	}
	if threshold != nil {
		params.Threshold = *threshold
	}
	if err := params.Validate(); err != nil {
		return err
	}

	logger.Info("initializing vault",
		slog.Int("shares", params.Shares),
		slog.Int("threshold", params.Threshold),
	)

	result, err := lifecycle.Initialize(ctx, params)
	if err != nil && !errors.Is(err, vaultDomain.ErrAlreadyInitialized) {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}

	response := dto.MapInitResultToResponse(result)
	if format == FormatJSON {
		return outputJSON(writer, response)
	}

	if response.Message == dto.MessageVaultExists {
		_, _ = fmt.Fprintln(writer, "Vault is already initialized.")
		return nil
	}
	_, _ = fmt.Fprintln(writer, "Vault initialized successfully!")
	_, _ = fmt.Fprintf(writer, "Shares: %d\n", response.Shares)
	_, _ = fmt.Fprintf(writer, "Threshold: %d\n", response.Threshold)
	_, _ = fmt.Fprintln(writer, "\nRecovery material was written to the configured recovery store.")
	return nil
}
