package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/allisson/secretbroker/internal/errors"
	"github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/service"
)

// SealPolicy controls when the vault is sealed again.
type SealPolicy string

const (
	// SealLongLived keeps the vault unsealed until Seal is called.
	SealLongLived SealPolicy = "long_lived"
	// SealPerOperation unseals before and seals after every session.
	SealPerOperation SealPolicy = "per_operation"
)

// ParseSealPolicy converts a configuration value to a SealPolicy.
func ParseSealPolicy(s string) (SealPolicy, error) {
	switch SealPolicy(s) {
	case SealLongLived, "":
		return SealLongLived, nil
	case SealPerOperation:
		return SealPerOperation, nil
	default:
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown seal policy %q", s)
	}
}

// Config configures the lifecycle manager.
type Config struct {
	Defaults    domain.InitParams
	Policy      SealPolicy
	SealTimeout time.Duration
}

type readyHandle struct {
	client   service.SecretClient
	material *domain.RecoveryMaterial
}

type lifecycleUseCase struct {
	store  service.MasterStore
	repo   RecoveryMaterialRepository
	cfg    Config
	logger *slog.Logger

	// initMu guards the initialize-or-load critical section.
	initMu sync.Mutex
	handle atomic.Pointer[readyHandle]
	// fatal is set when recovery material is unusable; every later call short-circuits.
	fatal atomic.Pointer[error]

	// sessionMu is held for reading by long-lived sessions and for writing by
	// per-operation sessions and Seal.
	sessionMu sync.RWMutex
	unsealed  atomic.Bool
	// unseals counts re-unseals done by long-lived sessions.
	unseals atomic.Uint64
	// initializing is set while an init request is in flight.
	initializing atomic.Bool
}

// NewLifecycleUseCase creates the lifecycle manager.
func NewLifecycleUseCase(
	store service.MasterStore,
	repo RecoveryMaterialRepository,
	cfg Config,
	logger *slog.Logger,
) LifecycleUseCase {
	if cfg.Policy == "" {
		cfg.Policy = SealLongLived
	}
	if cfg.SealTimeout <= 0 {
		cfg.SealTimeout = 10 * time.Second
	}
	return &lifecycleUseCase{store: store, repo: repo, cfg: cfg, logger: logger}
}

// ReadyClient returns the cached handle or builds it under initMu.
func (l *lifecycleUseCase) ReadyClient(ctx context.Context) (service.SecretClient, error) {
	h, err := l.ready(ctx)
	if err != nil {
		return nil, err
	}
	return h.client, nil
}

func (l *lifecycleUseCase) ready(ctx context.Context) (*readyHandle, error) {
	if h := l.handle.Load(); h != nil {
		return h, nil
	}
	if err := l.fatalErr(); err != nil {
		return nil, err
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	if h := l.handle.Load(); h != nil {
		return h, nil
	}
	if err := l.fatalErr(); err != nil {
		return nil, err
	}

	material, err := l.initializeOrLoad(ctx)
	if err != nil {
		return nil, notReady(err)
	}

	l.store.Authenticate(material.RootToken)

	if err := l.store.Unseal(ctx, material.UnsealKeys); err != nil {
		l.logger.Error("failed to unseal vault", slog.Any("error", err))
		return nil, notReady(err)
	}
	l.unsealed.Store(true)

	if err := l.store.EnsureKVMount(ctx); err != nil {
		l.logger.Error("failed to mount kv engine", slog.Any("error", err))
		return nil, notReady(err)
	}

	h := &readyHandle{client: l.store.SecretClient(), material: material}
	l.handle.Store(h)
	l.logger.Info("vault ready", slog.String("seal_policy", string(l.cfg.Policy)))
	return h, nil
}

// initializeOrLoad must run under initMu.
func (l *lifecycleUseCase) initializeOrLoad(ctx context.Context) (*domain.RecoveryMaterial, error) {
	initialized, err := l.store.IsInitialized(ctx)
	if err != nil {
		return nil, err
	}

	if !initialized {
		if err := l.cfg.Defaults.Validate(); err != nil {
			return nil, err
		}
		return l.initialize(ctx, l.cfg.Defaults)
	}

	material, err := l.repo.Load(ctx)
	if err != nil {
		// Re-initializing here would orphan every secret already stored in the vault.
		l.logger.Error("vault is initialized but recovery material cannot be loaded", slog.Any("error", err))
		return nil, l.setFatal(err)
	}
	return material, nil
}

// initialize must run under initMu.
func (l *lifecycleUseCase) initialize(ctx context.Context, params domain.InitParams) (*domain.RecoveryMaterial, error) {
	l.initializing.Store(true)
	defer l.initializing.Store(false)

	material, err := l.store.Initialize(ctx, params)
	if err != nil {
		l.logger.Error("failed to initialize vault", slog.Any("error", err))
		if apperrors.Is(err, apperrors.ErrBackendRejected) {
			return nil, apperrors.Join(domain.ErrInitializationRejected, err)
		}
		return nil, apperrors.Join(domain.ErrInitializationFailed, err)
	}

	if err := l.repo.Save(ctx, material); err != nil {
		l.logger.Error("vault initialized but recovery material could not be persisted", slog.Any("error", err))
		return nil, l.setFatal(err)
	}

	l.logger.Info("vault initialized",
		slog.Int("shares", params.Shares),
		slog.Int("threshold", params.Threshold),
	)
	return material, nil
}

// Initialize performs an explicit initialization. Parameters are validated before
// the vault is contacted.
func (l *lifecycleUseCase) Initialize(ctx context.Context, params domain.InitParams) (*domain.InitResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := l.fatalErr(); err != nil {
		return nil, err
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	initialized, err := l.store.IsInitialized(ctx)
	if err != nil {
		return nil, apperrors.Join(domain.ErrInitializationFailed, err)
	}
	if initialized {
		return &domain.InitResult{AlreadyInitialized: true}, domain.ErrAlreadyInitialized
	}

	if _, err := l.initialize(ctx, params); err != nil {
		return nil, err
	}
	return &domain.InitResult{Shares: params.Shares, Threshold: params.Threshold}, nil
}

// WithSession runs fn against the ready vault. Under SealPerOperation sessions are
// serialized and the vault is sealed on every exit path of fn, panics included.
// Under SealLongLived a vault found sealed after fn fails (restart, or a seal from
// another process) is unsealed again and fn runs once more.
func (l *lifecycleUseCase) WithSession(
	ctx context.Context,
	fn func(ctx context.Context, client service.SecretClient) error,
) error {
	if l.cfg.Policy == SealPerOperation {
		return l.perOperationSession(ctx, fn)
	}

	l.sessionMu.RLock()
	defer l.sessionMu.RUnlock()

	h, err := l.ready(ctx)
	if err != nil {
		return err
	}

	seen := l.unseals.Load()
	err = fn(ctx, h.client)
	if err == nil || !apperrors.Is(err, apperrors.ErrBackendUnavailable) {
		return err
	}
	if !l.unsealAgain(ctx, h, seen) {
		return err
	}
	return fn(ctx, h.client)
}

// unsealAgain reports whether fn is worth running again: the vault was sealed and
// is unsealed now, either here or by a concurrent session since seen was read.
func (l *lifecycleUseCase) unsealAgain(ctx context.Context, h *readyHandle, seen uint64) bool {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	status, err := l.store.SealStatus(ctx)
	if err != nil || !status.Initialized {
		return false
	}
	if !status.Sealed {
		return l.unseals.Load() != seen
	}

	l.unsealed.Store(false)
	l.logger.Warn("vault was sealed outside the broker, unsealing again")

	if err := l.store.Unseal(ctx, h.material.UnsealKeys); err != nil {
		l.logger.Error("failed to unseal vault again", slog.Any("error", err))
		return false
	}
	l.unsealed.Store(true)
	l.unseals.Add(1)
	return true
}

func (l *lifecycleUseCase) perOperationSession(
	ctx context.Context,
	fn func(ctx context.Context, client service.SecretClient) error,
) error {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	h, err := l.ready(ctx)
	if err != nil {
		// ready may have unsealed before failing
		if l.unsealed.Load() {
			l.sealQuietly(ctx)
		}
		return err
	}

	if !l.unsealed.Load() {
		if err := l.store.Unseal(ctx, h.material.UnsealKeys); err != nil {
			return notReady(err)
		}
		l.unsealed.Store(true)
	}
	defer l.sealQuietly(ctx)

	return fn(ctx, h.client)
}

// sealQuietly seals with a context detached from the caller so a canceled request
// still closes the vault.
func (l *lifecycleUseCase) sealQuietly(ctx context.Context) {
	sealCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.SealTimeout)
	defer cancel()

	if err := l.store.Seal(sealCtx); err != nil {
		l.logger.Error("failed to seal vault", slog.Any("error", err))
		return
	}
	l.unsealed.Store(false)
}

// Status queries the vault seal status and adds whether a ready handle is cached.
// An uninitialized vault reports StateInitializing while this process initializes it.
func (l *lifecycleUseCase) Status(ctx context.Context) (*domain.Status, error) {
	status, err := l.store.SealStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Initialized && l.initializing.Load() {
		status.State = domain.StateInitializing
	}
	status.Ready = l.handle.Load() != nil && l.fatalErr() == nil
	return status, nil
}

// Seal seals the vault. A process that never obtained a handle loads the recovery
// material to authenticate first. Sealing an uninitialized or already sealed vault
// is a no-op.
func (l *lifecycleUseCase) Seal(ctx context.Context) error {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	l.initMu.Lock()
	defer l.initMu.Unlock()

	status, err := l.store.SealStatus(ctx)
	if err != nil {
		return err
	}
	if !status.Initialized || status.Sealed {
		l.handle.Store(nil)
		l.unsealed.Store(false)
		return nil
	}

	if l.handle.Load() == nil {
		material, err := l.repo.Load(ctx)
		if err != nil {
			return err
		}
		l.store.Authenticate(material.RootToken)
	}

	if err := l.store.Seal(ctx); err != nil {
		return err
	}

	l.handle.Store(nil)
	l.unsealed.Store(false)
	l.logger.Info("vault sealed")
	return nil
}

func (l *lifecycleUseCase) fatalErr() error {
	if p := l.fatal.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *lifecycleUseCase) setFatal(cause error) error {
	err := notReady(cause)
	l.fatal.Store(&err)
	return err
}

// notReady marks a failure to obtain a handle: the result always matches both
// ErrLifecycleFatal and ErrBackendUnavailable, and still wraps the cause.
func notReady(err error) error {
	if !apperrors.Is(err, apperrors.ErrBackendUnavailable) {
		err = apperrors.Join(apperrors.ErrBackendUnavailable, err)
	}
	if !apperrors.Is(err, apperrors.ErrLifecycleFatal) {
		err = apperrors.Join(domain.ErrVaultNotReady, err)
	}
	return err
}
