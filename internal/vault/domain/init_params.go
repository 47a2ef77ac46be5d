package domain

import (
	validation "github.com/jellydator/validation"
)

// Default share parameters used when the vault is initialized implicitly.
const (
	DefaultShares    = 1
	DefaultThreshold = 1

	// MaxShares is the largest share count the vault's Shamir split accepts.
	MaxShares = 255
)

// InitParams are the key-share parameters of a vault initialization.
type InitParams struct {
	Shares    int
	Threshold int
}

// DefaultInitParams returns the single-share configuration used for implicit initialization.
func DefaultInitParams() InitParams {
	return InitParams{Shares: DefaultShares, Threshold: DefaultThreshold}
}

// Validate rejects share configurations the vault would refuse or that make no sense:
// non-positive values, more than MaxShares shares, a threshold above the share count,
// and a threshold of one when more than one share is generated.
func (p InitParams) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Shares, validation.Required, validation.Min(1), validation.Max(MaxShares)),
		validation.Field(&p.Threshold,
			validation.Required,
			validation.Min(1),
			validation.Max(p.Shares).Error("must be no greater than shares"),
			validation.When(p.Shares >= 2, validation.Min(2).Error("must be at least 2 when shares is 2 or more")),
		),
	)
	if err != nil {
		return wrapInvalid(err)
	}
	return nil
}

// InitResult is returned by an explicit initialization.
type InitResult struct {
	// AlreadyInitialized is true when the vault was initialized before this call.
	AlreadyInitialized bool
	Shares             int
	Threshold          int
}
