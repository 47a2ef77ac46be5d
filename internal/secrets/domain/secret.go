// Package domain defines the core domain models and types for secret management.
// A secret is a named value kept by one of the configured backends: the master
// vault, a Kubernetes aggregate Secret object or Docker Swarm secrets.
package domain

import (
	"time"
)

// Secret represents a named secret value held by a backend.
type Secret struct {
	// Name is the caller-chosen key of the secret.
	Name string
	// Value holds the secret payload. Swarm never returns payloads, so it is empty on swarm reads.
	Value []byte `json:"-"`
	// Service is the swarm service the secret is attached to. Other backends ignore it.
	Service string
	// ID is the backend identifier when the backend assigns one.
	ID string
	// Version is the backend object version when the backend tracks one.
	Version uint64
	// Metadata carries backend-specific attributes of the stored secret.
	Metadata map[string]string
	// CreatedAt is the creation time reported by the backend, zero when unknown.
	CreatedAt time.Time
}

// Key returns the lookup key of the secret.
func (s *Secret) Key() SecretKey {
	return SecretKey{Name: s.Name, Service: s.Service}
}

// SecretKey identifies a secret for read and delete operations.
type SecretKey struct {
	Name    string
	Service string
}

// ServiceBinding records a swarm secret attached to a service.
type ServiceBinding struct {
	SecretID       string
	SecretName     string
	ServiceID      string
	ServiceVersion uint64
}
