package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/secretbroker/internal/app"
	"github.com/allisson/secretbroker/internal/config"
)

// RunServer starts the API and metrics servers and blocks until SIGINT/SIGTERM or a
// server failure. On the way out servers stop first, then the vault is sealed when
// running with the long_lived seal policy.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.String("seal_policy", cfg.VaultSealPolicy),
		slog.String("app_secrets_backend", cfg.AppSecretsBackend),
	)

	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	lifecycle, err := container.LifecycleUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize vault lifecycle: %w", err)
	}

	if cfg.VaultSealPolicy == config.SealPolicyLongLived {
		// warm up so the first request does not pay for init/unseal; failures are retried lazily
		if _, err := lifecycle.ReadyClient(ctx); err != nil {
			logger.Warn("vault not ready at startup", slog.Any("error", err))
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		group.Go(func() error {
			if err := metricsServer.Start(groupCtx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		if cfg.VaultSealPolicy == config.SealPolicyLongLived {
			if err := lifecycle.Seal(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("vault seal: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return group.Wait()
}
