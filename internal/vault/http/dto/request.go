// Package dto provides data transfer objects for the vault HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// InitVaultRequest contains the share parameters of an explicit initialization.
// Omitted fields fall back to the configured defaults.
type InitVaultRequest struct {
	Shares    *int `json:"shares"`
	Threshold *int `json:"threshold"`
}

// Validate checks that provided values are positive.
func (r *InitVaultRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Shares, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.Threshold, validation.NilOrNotEmpty, validation.Min(1)),
	)
}

// ToInitParams merges the request with defaults.
func (r *InitVaultRequest) ToInitParams(defaults vaultDomain.InitParams) vaultDomain.InitParams {
	params := defaults
	if r.Shares != nil {
		params.Shares = *r.Shares
	}
	if r.Threshold != nil {
		params.Threshold = *r.Threshold
	}
	return params
}
