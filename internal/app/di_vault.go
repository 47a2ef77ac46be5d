package app

import (
	"context"
	"fmt"

	"github.com/allisson/secretbroker/internal/config"
	"github.com/allisson/secretbroker/internal/metrics"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
	vaultHTTP "github.com/allisson/secretbroker/internal/vault/http"
	vaultRepository "github.com/allisson/secretbroker/internal/vault/repository"
	vaultService "github.com/allisson/secretbroker/internal/vault/service"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// MasterStore returns the client for the master vault.
func (c *Container) MasterStore() (vaultService.MasterStore, error) {
	var err error
	c.masterStoreInit.Do(func() {
		c.masterStore, err = c.initMasterStore()
		if err != nil {
			c.setInitError("masterStore", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("masterStore"); storedErr != nil {
		return nil, storedErr
	}
	return c.masterStore, nil
}

// KMSKeeper returns the keeper encrypting recovery material, or nil when no key URI is configured.
func (c *Container) KMSKeeper() (vaultDomain.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		c.kmsKeeper, err = c.initKMSKeeper()
		if err != nil {
			c.setInitError("kmsKeeper", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("kmsKeeper"); storedErr != nil {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// RecoveryMaterialRepository returns the store for the root token and unseal keys.
func (c *Container) RecoveryMaterialRepository() (vaultUseCase.RecoveryMaterialRepository, error) {
	var err error
	c.recoveryRepoInit.Do(func() {
		c.recoveryRepo, err = c.initRecoveryMaterialRepository()
		if err != nil {
			c.setInitError("recoveryRepo", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("recoveryRepo"); storedErr != nil {
		return nil, storedErr
	}
	return c.recoveryRepo, nil
}

// LifecycleUseCase returns the vault lifecycle manager shared by every caller.
func (c *Container) LifecycleUseCase() (vaultUseCase.LifecycleUseCase, error) {
	var err error
	c.lifecycleUseCaseInit.Do(func() {
		c.lifecycleUseCase, err = c.initLifecycleUseCase()
		if err != nil {
			c.setInitError("lifecycleUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("lifecycleUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.lifecycleUseCase, nil
}

// VaultHandler returns the HTTP handler for vault initialization and status.
func (c *Container) VaultHandler() (*vaultHTTP.VaultHandler, error) {
	var err error
	c.vaultHandlerInit.Do(func() {
		c.vaultHandler, err = c.initVaultHandler()
		if err != nil {
			c.setInitError("vaultHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("vaultHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.vaultHandler, nil
}

// VaultInitParams returns the configured share layout used for implicit initialization.
func (c *Container) VaultInitParams() vaultDomain.InitParams {
	return vaultDomain.InitParams{
		Shares:    c.config.VaultShares,
		Threshold: c.config.VaultThreshold,
	}
}

func (c *Container) initMasterStore() (vaultService.MasterStore, error) {
	store, err := vaultService.NewMasterStore(vaultService.Config{
		Address: c.config.VaultAddr,
		Timeout: c.config.VaultTimeout,
		KVMount: c.config.VaultKVMount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create master store: %w", err)
	}
	return store, nil
}

func (c *Container) initKMSKeeper() (vaultDomain.KMSKeeper, error) {
	if c.config.RecoveryKMSKeyURI == "" {
		return nil, nil
	}

	keeper, err := vaultService.NewRecoveryKeeperService().OpenKeeper(context.Background(), c.config.RecoveryKMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open recovery material keeper: %w", err)
	}
	return keeper, nil
}

func (c *Container) initRecoveryMaterialRepository() (vaultUseCase.RecoveryMaterialRepository, error) {
	var repo vaultUseCase.RecoveryMaterialRepository

	switch c.config.RecoveryStore {
	case config.RecoveryStoreFile, "":
		repo = vaultRepository.NewFileRecoveryMaterialRepository(c.config.RecoveryDir)
	case config.RecoveryStorePostgres, config.RecoveryStoreMySQL:
		if c.config.DBDriver != c.config.RecoveryStore {
			return nil, fmt.Errorf(
				"recovery store %q requires DB_DRIVER=%s, got %q",
				c.config.RecoveryStore,
				c.config.RecoveryStore,
				c.config.DBDriver,
			)
		}

		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for recovery material repository: %w", err)
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for recovery material repository: %w", err)
		}

		if c.config.RecoveryStore == config.RecoveryStorePostgres {
			repo = vaultRepository.NewPostgreSQLRecoveryMaterialRepository(db, txManager)
		} else {
			repo = vaultRepository.NewMySQLRecoveryMaterialRepository(db, txManager)
		}
	default:
		return nil, fmt.Errorf("unsupported recovery store: %s", c.config.RecoveryStore)
	}

	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get keeper for recovery material repository: %w", err)
	}
	if keeper != nil {
		return vaultRepository.NewEncryptedRecoveryMaterialRepository(repo, keeper), nil
	}

	return repo, nil
}

func (c *Container) initLifecycleUseCase() (vaultUseCase.LifecycleUseCase, error) {
	store, err := c.MasterStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get master store for lifecycle use case: %w", err)
	}

	repo, err := c.RecoveryMaterialRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get recovery material repository for lifecycle use case: %w", err)
	}

	policy, err := vaultUseCase.ParseSealPolicy(c.config.VaultSealPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seal policy: %w", err)
	}

	params := c.VaultInitParams()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vault share configuration: %w", err)
	}

	baseUseCase := vaultUseCase.NewLifecycleUseCase(store, repo, vaultUseCase.Config{
		Defaults:    params,
		Policy:      policy,
		SealTimeout: c.config.VaultTimeout,
	}, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for lifecycle use case: %w", err)
		}
		if err := c.registerVaultStateGauge(baseUseCase); err != nil {
			return nil, err
		}
		return vaultUseCase.NewLifecycleUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// registerVaultStateGauge exports the lifecycle state on every scrape. It reads the
// undecorated use case so scrapes do not count as vault_status operations.
func (c *Container) registerVaultStateGauge(lifecycle vaultUseCase.LifecycleUseCase) error {
	provider, err := c.MetricsProvider()
	if err != nil {
		return fmt.Errorf("failed to get metrics provider for vault state gauge: %w", err)
	}
	if provider == nil {
		return nil
	}

	states := []string{
		vaultDomain.StateUninitialized.String(),
		vaultDomain.StateInitializing.String(),
		vaultDomain.StateSealed.String(),
		vaultDomain.StateUnsealed.String(),
	}

	return metrics.RegisterVaultStateGauge(
		provider.MeterProvider(),
		c.config.MetricsNamespace,
		states,
		func(ctx context.Context) (string, error) {
			status, err := lifecycle.Status(ctx)
			if err != nil {
				return "", err
			}
			return status.State.String(), nil
		},
	)
}

func (c *Container) initVaultHandler() (*vaultHTTP.VaultHandler, error) {
	lifecycle, err := c.LifecycleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle use case for vault handler: %w", err)
	}

	return vaultHTTP.NewVaultHandler(lifecycle, c.VaultInitParams(), c.Logger()), nil
}
