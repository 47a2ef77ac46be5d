package usecase

import (
	"context"
	"log/slog"
	"strings"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// secretUseCase implements the SecretUseCase interface on top of a single Backend.
type secretUseCase struct {
	backend Backend
	logger  *slog.Logger
}

// NewSecretUseCase creates a new SecretUseCase bound to backend.
func NewSecretUseCase(backend Backend, logger *slog.Logger) SecretUseCase {
	return &secretUseCase{
		backend: backend,
		logger:  logger,
	}
}

// Create validates and stores a new secret.
func (s *secretUseCase) Create(
	ctx context.Context,
	secret *secretsDomain.Secret,
) (*secretsDomain.Secret, error) {
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	if err := s.backend.Create(ctx, secret); err != nil {
		return nil, err
	}

	s.logger.Debug("secret created", slog.String("backend", s.backend.Name()), slog.String("name", secret.Name))

	return secret, nil
}

// Get reads a secret by name.
func (s *secretUseCase) Get(ctx context.Context, key secretsDomain.SecretKey) (*secretsDomain.Secret, error) {
	if strings.TrimSpace(key.Name) == "" {
		return nil, secretsDomain.ErrSecretNameRequired
	}

	return s.backend.Read(ctx, key)
}

// Update replaces the value of an existing secret. The existence check runs first
// so that a missing secret is reported as not found on every backend.
func (s *secretUseCase) Update(
	ctx context.Context,
	secret *secretsDomain.Secret,
) (*secretsDomain.Secret, error) {
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	if _, err := s.backend.Read(ctx, secret.Key()); err != nil {
		return nil, err
	}

	if err := s.backend.Update(ctx, secret); err != nil {
		return nil, err
	}

	s.logger.Debug("secret updated", slog.String("backend", s.backend.Name()), slog.String("name", secret.Name))

	return secret, nil
}

// Delete removes a secret by name.
func (s *secretUseCase) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	if strings.TrimSpace(key.Name) == "" {
		return secretsDomain.ErrSecretNameRequired
	}

	if err := s.backend.Delete(ctx, key); err != nil {
		return err
	}

	s.logger.Debug("secret deleted", slog.String("backend", s.backend.Name()), slog.String("name", key.Name))

	return nil
}

// Backend returns the name of the configured backend.
func (s *secretUseCase) Backend() string {
	return s.backend.Name()
}

func validateSecret(secret *secretsDomain.Secret) error {
	if secret == nil || strings.TrimSpace(secret.Name) == "" {
		return secretsDomain.ErrSecretNameRequired
	}
	if len(secret.Value) == 0 {
		return secretsDomain.ErrSecretValueRequired
	}
	return nil
}
