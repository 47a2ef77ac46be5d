// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
	customValidation "github.com/allisson/secretbroker/internal/validation"
)

// CreateSecretRequest contains the parameters for creating a secret.
// Service is required by the swarm backend and ignored by the others.
type CreateSecretRequest struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Service string `json:"service"`
}

// Validate checks if the create secret request is valid.
func (r *CreateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			customValidation.SecretName,
			validation.Length(1, 253),
		),
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.Service, customValidation.NoWhitespace),
	)
}

// ToDomain converts the request to a domain secret.
func (r *CreateSecretRequest) ToDomain() *secretsDomain.Secret {
	return &secretsDomain.Secret{
		Name:    r.Name,
		Value:   []byte(r.Value),
		Service: r.Service,
	}
}

// UpdateSecretRequest contains the new value of a secret. The name is taken from the URL.
type UpdateSecretRequest struct {
	Value   string `json:"value"`
	Service string `json:"service"`
}

// Validate checks if the update secret request is valid.
func (r *UpdateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.Service, customValidation.NoWhitespace),
	)
}

// ToDomain converts the request to a domain secret named name.
func (r *UpdateSecretRequest) ToDomain(name string) *secretsDomain.Secret {
	return &secretsDomain.Secret{
		Name:    name,
		Value:   []byte(r.Value),
		Service: r.Service,
	}
}
