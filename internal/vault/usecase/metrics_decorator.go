package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/allisson/secretbroker/internal/metrics"
	"github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/service"
)

const lifecycleMetricsDomain = "vault_lifecycle"

// lifecycleUseCaseWithMetrics decorates LifecycleUseCase with metrics instrumentation.
type lifecycleUseCaseWithMetrics struct {
	next    LifecycleUseCase
	metrics metrics.BusinessMetrics
}

// NewLifecycleUseCaseWithMetrics wraps a LifecycleUseCase with metrics recording.
// Sessions are not recorded here; the secret backends record their own operations.
func NewLifecycleUseCaseWithMetrics(useCase LifecycleUseCase, m metrics.BusinessMetrics) LifecycleUseCase {
	return &lifecycleUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *lifecycleUseCaseWithMetrics) record(ctx context.Context, operation, status string, start time.Time) {
	l.metrics.RecordOperation(ctx, lifecycleMetricsDomain, operation, status)
	l.metrics.RecordDuration(ctx, lifecycleMetricsDomain, operation, time.Since(start), status)
}

func statusOf(err error) string {
	if err != nil {
		return metrics.StatusError
	}
	return metrics.StatusSuccess
}

// ReadyClient records metrics for obtaining the ready handle.
func (l *lifecycleUseCaseWithMetrics) ReadyClient(ctx context.Context) (service.SecretClient, error) {
	start := time.Now()
	client, err := l.next.ReadyClient(ctx)
	l.record(ctx, "vault_ready", statusOf(err), start)
	return client, err
}

// Initialize records metrics for explicit initialization. An already initialized
// vault is recorded with the "exists" status.
func (l *lifecycleUseCaseWithMetrics) Initialize(
	ctx context.Context,
	params domain.InitParams,
) (*domain.InitResult, error) {
	start := time.Now()
	result, err := l.next.Initialize(ctx, params)

	status := statusOf(err)
	if errors.Is(err, domain.ErrAlreadyInitialized) {
		status = "exists"
	}
	l.record(ctx, "vault_initialize", status, start)

	return result, err
}

// WithSession delegates without recording.
func (l *lifecycleUseCaseWithMetrics) WithSession(
	ctx context.Context,
	fn func(ctx context.Context, client service.SecretClient) error,
) error {
	return l.next.WithSession(ctx, fn)
}

// Status records metrics for status queries.
func (l *lifecycleUseCaseWithMetrics) Status(ctx context.Context) (*domain.Status, error) {
	start := time.Now()
	status, err := l.next.Status(ctx)
	l.record(ctx, "vault_status", statusOf(err), start)
	return status, err
}

// Seal records metrics for seal operations.
func (l *lifecycleUseCaseWithMetrics) Seal(ctx context.Context) error {
	start := time.Now()
	err := l.next.Seal(ctx)
	l.record(ctx, "vault_seal", statusOf(err), start)
	return err
}
