package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/allisson/secretbroker/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// RunVaultStatus prints the current state of the master vault.
func RunVaultStatus(
	ctx context.Context,
	lifecycle vaultUseCase.LifecycleUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	status, err := lifecycle.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get vault status: %w", err)
	}

	response := dto.MapStatusToResponse(status)
	if format == FormatJSON {
		return outputJSON(writer, response)
	}

	_, _ = fmt.Fprintf(writer, "State: %s\n", response.State)
	_, _ = fmt.Fprintf(writer, "Initialized: %t\n", response.Initialized)
	_, _ = fmt.Fprintf(writer, "Sealed: %t\n", response.Sealed)
	if response.Sealed {
		_, _ = fmt.Fprintf(writer, "Unseal progress: %d/%d\n", response.Progress, response.Threshold)
	}
	if response.Version != "" {
		_, _ = fmt.Fprintf(writer, "Version: %s\n", response.Version)
	}
	return nil
}
