package dto

import (
	"time"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// SecretResponse represents a secret in API responses.
// The value is only included in GET responses and is absent when the backend
// cannot return payloads.
type SecretResponse struct {
	Name      string            `json:"name"`
	Value     string            `json:"value,omitempty"`
	Service   string            `json:"service,omitempty"`
	ID        string            `json:"id,omitempty"`
	Version   uint64            `json:"version,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
}

// DeleteSecretResponse is returned after a successful deletion.
type DeleteSecretResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// MapSecretToWriteResponse converts a domain secret to an API response for POST and PUT.
// The value is excluded.
func MapSecretToWriteResponse(secret *secretsDomain.Secret) SecretResponse {
	response := SecretResponse{
		Name:     secret.Name,
		Service:  secret.Service,
		ID:       secret.ID,
		Version:  secret.Version,
		Metadata: secret.Metadata,
	}
	if !secret.CreatedAt.IsZero() {
		createdAt := secret.CreatedAt
		response.CreatedAt = &createdAt
	}
	return response
}

// MapSecretToGetResponse converts a domain secret to an API response including its value.
func MapSecretToGetResponse(secret *secretsDomain.Secret) SecretResponse {
	response := MapSecretToWriteResponse(secret)
	response.Value = string(secret.Value)
	return response
}

// MapDeleteResponse builds the response of a successful deletion.
func MapDeleteResponse(name string) DeleteSecretResponse {
	return DeleteSecretResponse{Name: name, Message: "secret_deleted"}
}
