// Package domain defines the core domain models for the master vault lifecycle.
// The lifecycle state is never persisted: it is derived from the vault itself
// every time the process starts.
package domain

// State is the observed lifecycle state of the master vault.
type State int

const (
	// StateUninitialized means the vault has never been initialized.
	StateUninitialized State = iota
	// StateInitializing means an initialization request is in flight.
	StateInitializing
	// StateSealed means the vault is initialized but its storage is locked.
	StateSealed
	// StateUnsealed means the vault accepts secret operations.
	StateUnsealed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateSealed:
		return "sealed"
	case StateUnsealed:
		return "unsealed"
	default:
		return "unknown"
	}
}

// SecretsAllowed reports whether secret operations may run in this state.
func (s State) SecretsAllowed() bool {
	return s == StateUnsealed
}
