package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/secretbroker/internal/errors"
)

func TestSecret_Key(t *testing.T) {
	secret := &Secret{Name: "db-password", Service: "api", Value: []byte("x")}

	assert.Equal(t, SecretKey{Name: "db-password", Service: "api"}, secret.Key())
}

func TestErrors(t *testing.T) {
	assert.True(t, apperrors.Is(ErrSecretNotFound, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(ErrSecretNameRequired, apperrors.ErrInvalidInput))
	assert.True(t, apperrors.Is(ErrSecretValueRequired, apperrors.ErrInvalidInput))
	assert.True(t, apperrors.Is(ErrServiceRequired, apperrors.ErrInvalidInput))
	assert.True(t, apperrors.Is(ErrServiceNotFound, apperrors.ErrBackendRejected))
	assert.True(t, apperrors.Is(ErrSecretImmutable, apperrors.ErrBackendRejected))
	assert.True(t, apperrors.Is(ErrSecretExists, apperrors.ErrBackendRejected))
}
