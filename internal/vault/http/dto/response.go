package dto

import (
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// Messages returned by the initialization endpoint.
const (
	MessageInitSuccess = "init_vault_success"
	MessageVaultExists = "vault_exists"
)

// InitVaultResponse is returned by POST /v1/vaults.
type InitVaultResponse struct {
	Message   string `json:"message"`
	Shares    int    `json:"shares,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
}

// VaultStatusResponse is returned by GET /v1/vaults/status.
type VaultStatusResponse struct {
	State       string `json:"state"`
	Initialized bool   `json:"initialized"`
	Sealed      bool   `json:"sealed"`
	Ready       bool   `json:"ready"`
	Shares      int    `json:"shares"`
	Threshold   int    `json:"threshold"`
	Progress    int    `json:"progress"`
	Version     string `json:"version,omitempty"`
}

// MapInitResultToResponse converts an initialization result to an API response.
func MapInitResultToResponse(result *vaultDomain.InitResult) InitVaultResponse {
	if result == nil || result.AlreadyInitialized {
		return InitVaultResponse{Message: MessageVaultExists}
	}
	return InitVaultResponse{
		Message:   MessageInitSuccess,
		Shares:    result.Shares,
		Threshold: result.Threshold,
	}
}

// MapStatusToResponse converts a vault status to an API response.
func MapStatusToResponse(status *vaultDomain.Status) VaultStatusResponse {
	return VaultStatusResponse{
		State:       status.State.String(),
		Initialized: status.Initialized,
		Sealed:      status.Sealed,
		Ready:       status.Ready,
		Shares:      status.Shares,
		Threshold:   status.Threshold,
		Progress:    status.Progress,
		Version:     status.Version,
	}
}
