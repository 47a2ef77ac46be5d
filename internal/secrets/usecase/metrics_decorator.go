package usecase

import (
	"context"
	"time"

	"github.com/allisson/secretbroker/internal/metrics"
	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// secretUseCaseWithMetrics decorates SecretUseCase with metrics instrumentation.
// The backend name is used as the metrics domain label.
type secretUseCaseWithMetrics struct {
	next    SecretUseCase
	metrics metrics.BusinessMetrics
}

// NewSecretUseCaseWithMetrics wraps a SecretUseCase with metrics recording.
func NewSecretUseCaseWithMetrics(useCase SecretUseCase, m metrics.BusinessMetrics) SecretUseCase {
	return &secretUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *secretUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	domain := s.next.Backend()
	s.metrics.RecordOperation(ctx, domain, operation, status)
	s.metrics.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

// Create records metrics for secret creation operations.
func (s *secretUseCaseWithMetrics) Create(
	ctx context.Context,
	secret *secretsDomain.Secret,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	created, err := s.next.Create(ctx, secret)
	s.record(ctx, "secret_create", start, err)
	return created, err
}

// Get records metrics for secret retrieval operations.
func (s *secretUseCaseWithMetrics) Get(
	ctx context.Context,
	key secretsDomain.SecretKey,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Get(ctx, key)
	s.record(ctx, "secret_get", start, err)
	return secret, err
}

// Update records metrics for secret update operations.
func (s *secretUseCaseWithMetrics) Update(
	ctx context.Context,
	secret *secretsDomain.Secret,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	updated, err := s.next.Update(ctx, secret)
	s.record(ctx, "secret_update", start, err)
	return updated, err
}

// Delete records metrics for secret deletion operations.
func (s *secretUseCaseWithMetrics) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.record(ctx, "secret_delete", start, err)
	return err
}

// Backend returns the name of the decorated backend.
func (s *secretUseCaseWithMetrics) Backend() string {
	return s.next.Backend()
}
