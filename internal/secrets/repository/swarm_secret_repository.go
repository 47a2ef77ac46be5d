package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"

	appErrors "github.com/allisson/secretbroker/internal/errors"
	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// BackendSwarm is the name of the Docker Swarm backend.
const BackendSwarm = "swarm"

// Labels set on secrets created by the broker.
const (
	swarmManagedLabel = "com.secretbroker.managed"
	swarmServiceLabel = "com.secretbroker.service"
)

// SwarmClient is the subset of the Docker Engine API used by the swarm backend.
type SwarmClient interface {
	SecretCreate(ctx context.Context, secret swarm.SecretSpec) (types.SecretCreateResponse, error)
	SecretList(ctx context.Context, options types.SecretListOptions) ([]swarm.Secret, error)
	SecretRemove(ctx context.Context, id string) error
	ServiceInspectWithRaw(
		ctx context.Context,
		serviceID string,
		options types.ServiceInspectOptions,
	) (swarm.Service, []byte, error)
	ServiceList(ctx context.Context, options types.ServiceListOptions) ([]swarm.Service, error)
	ServiceUpdate(
		ctx context.Context,
		serviceID string,
		version swarm.Version,
		service swarm.ServiceSpec,
		options types.ServiceUpdateOptions,
	) (swarm.ServiceUpdateResponse, error)
}

var _ SwarmClient = (*client.Client)(nil)

// SwarmSecretRepository stores secrets as Docker Swarm secrets attached to a service.
// Swarm secrets are immutable and their payload can never be read back.
type SwarmSecretRepository struct {
	client  SwarmClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewSwarmSecretRepository creates a new SwarmSecretRepository.
func NewSwarmSecretRepository(client SwarmClient, timeout time.Duration, logger *slog.Logger) *SwarmSecretRepository {
	return &SwarmSecretRepository{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Name returns the backend name.
func (s *SwarmSecretRepository) Name() string {
	return BackendSwarm
}

// Create creates a swarm secret and attaches it to secret.Service. The service is
// checked before anything is created, and the new secret is removed again when
// it cannot be attached.
func (s *SwarmSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	if strings.TrimSpace(secret.Service) == "" {
		return secretsDomain.ErrServiceRequired
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	service, err := s.inspectService(ctx, secret.Service)
	if err != nil {
		return err
	}

	created, err := s.client.SecretCreate(ctx, swarm.SecretSpec{
		Annotations: swarm.Annotations{
			Name: secret.Name,
			Labels: map[string]string{
				swarmManagedLabel: "true",
				swarmServiceLabel: secret.Service,
			},
		},
		Data: secret.Value,
	})
	if err != nil {
		if cerrdefs.IsConflict(err) || cerrdefs.IsAlreadyExists(err) {
			return appErrors.Join(secretsDomain.ErrSecretExists, fmt.Errorf("swarm create secret %q: %w", secret.Name, err))
		}
		return s.translateError(err, "create secret")
	}

	binding, err := s.updateService(ctx, service, func(spec *swarm.ServiceSpec) error {
		refs, err := containerSecrets(spec)
		if err != nil {
			return err
		}
		setContainerSecrets(spec, append(refs, &swarm.SecretReference{
			File: &swarm.SecretReferenceFileTarget{
				Name: secret.Name,
				UID:  "0",
				GID:  "0",
				Mode: 0o444,
			},
			SecretID:   created.ID,
			SecretName: secret.Name,
		}))
		return nil
	})
	if err != nil {
		s.removeSecret(created.ID, secret.Name)
		return err
	}

	binding.SecretID = created.ID
	binding.SecretName = secret.Name

	secret.ID = created.ID
	secret.Version = binding.ServiceVersion
	secret.Metadata = map[string]string{
		"secret_id":       binding.SecretID,
		"service_id":      binding.ServiceID,
		"service_version": fmt.Sprint(binding.ServiceVersion),
	}

	s.logger.Info("swarm secret attached to service",
		slog.String("secret", secret.Name),
		slog.String("service", secret.Service),
	)

	return nil
}

// Read returns the secret metadata. The value is always empty.
func (s *SwarmSecretRepository) Read(
	ctx context.Context,
	key secretsDomain.SecretKey,
) (*secretsDomain.Secret, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	found, err := s.findSecret(ctx, key.Name)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"secret_id": found.ID}
	for k, v := range found.Spec.Labels {
		metadata[k] = v
	}

	return &secretsDomain.Secret{
		Name:      found.Spec.Name,
		Service:   found.Spec.Labels[swarmServiceLabel],
		ID:        found.ID,
		Version:   found.Version.Index,
		Metadata:  metadata,
		CreatedAt: found.CreatedAt.UTC(),
	}, nil
}

// Update always fails: swarm secrets cannot change once created. A missing secret
// is reported as not found.
func (s *SwarmSecretRepository) Update(ctx context.Context, secret *secretsDomain.Secret) error {
	if _, err := s.Read(ctx, secret.Key()); err != nil {
		return err
	}
	return secretsDomain.ErrSecretImmutable
}

// Delete detaches the secret from key.Service and removes the secret object
// when no other service still references it.
func (s *SwarmSecretRepository) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	if strings.TrimSpace(key.Service) == "" {
		return secretsDomain.ErrServiceRequired
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	service, err := s.inspectService(ctx, key.Service)
	if err != nil {
		return err
	}

	var secretID string
	_, err = s.updateService(ctx, service, func(spec *swarm.ServiceSpec) error {
		refs, err := containerSecrets(spec)
		if err != nil {
			return err
		}

		secretID = ""
		kept := make([]*swarm.SecretReference, 0, len(refs))
		for _, ref := range refs {
			if ref.SecretName == key.Name {
				secretID = ref.SecretID
				continue
			}
			kept = append(kept, ref)
		}
		if secretID == "" {
			return secretsDomain.ErrSecretNotFound
		}

		setContainerSecrets(spec, kept)
		return nil
	})
	if err != nil {
		return err
	}

	inUse, err := s.referencedElsewhere(ctx, secretID)
	if err != nil {
		s.logger.Warn("failed to check swarm secret references, keeping secret",
			slog.String("secret", key.Name),
			slog.Any("error", err),
		)
		return nil
	}
	if !inUse {
		s.removeSecret(secretID, key.Name)
	}

	return nil
}

// updateService applies mutate to the service spec and submits it with the
// service version as a compare-and-swap token. A version conflict triggers one
// re-fetch and retry.
func (s *SwarmSecretRepository) updateService(
	ctx context.Context,
	service swarm.Service,
	mutate func(spec *swarm.ServiceSpec) error,
) (secretsDomain.ServiceBinding, error) {
	for attempt := 0; ; attempt++ {
		spec := service.Spec
		if err := mutate(&spec); err != nil {
			return secretsDomain.ServiceBinding{}, err
		}

		_, err := s.client.ServiceUpdate(ctx, service.ID, service.Version, spec, types.ServiceUpdateOptions{})
		if err == nil {
			return secretsDomain.ServiceBinding{
				ServiceID:      service.ID,
				ServiceVersion: service.Version.Index,
			}, nil
		}

		if attempt > 0 || !isVersionConflict(err) {
			return secretsDomain.ServiceBinding{}, s.translateError(err, "update service")
		}

		s.logger.Debug("swarm service changed concurrently, retrying",
			slog.String("service", service.Spec.Name),
			slog.Uint64("version", service.Version.Index),
		)

		service, err = s.inspectService(ctx, service.ID)
		if err != nil {
			return secretsDomain.ServiceBinding{}, err
		}
	}
}

func (s *SwarmSecretRepository) inspectService(ctx context.Context, nameOrID string) (swarm.Service, error) {
	service, _, err := s.client.ServiceInspectWithRaw(ctx, nameOrID, types.ServiceInspectOptions{})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return swarm.Service{}, appErrors.Join(secretsDomain.ErrServiceNotFound, fmt.Errorf("swarm service %q: %w", nameOrID, err))
		}
		return swarm.Service{}, s.translateError(err, "inspect service")
	}
	return service, nil
}

// findSecret looks a secret up by exact name. The name filter of the engine
// matches prefixes, so results are compared again.
func (s *SwarmSecretRepository) findSecret(ctx context.Context, name string) (swarm.Secret, error) {
	secrets, err := s.client.SecretList(ctx, types.SecretListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return swarm.Secret{}, s.translateError(err, "list secrets")
	}

	for _, secret := range secrets {
		if secret.Spec.Name == name {
			return secret, nil
		}
	}
	return swarm.Secret{}, secretsDomain.ErrSecretNotFound
}

func (s *SwarmSecretRepository) referencedElsewhere(ctx context.Context, secretID string) (bool, error) {
	services, err := s.client.ServiceList(ctx, types.ServiceListOptions{})
	if err != nil {
		return false, err
	}

	for _, service := range services {
		refs, err := containerSecrets(&service.Spec)
		if err != nil {
			continue
		}
		for _, ref := range refs {
			if ref.SecretID == secretID {
				return true, nil
			}
		}
	}
	return false, nil
}

// removeSecret deletes a secret object. Failures are logged only: the caller's
// operation has already been decided.
func (s *SwarmSecretRepository) removeSecret(id, name string) {
	ctx, cancel := s.withTimeout(context.Background())
	defer cancel()

	if err := s.client.SecretRemove(ctx, id); err != nil {
		s.logger.Error("failed to remove swarm secret",
			slog.String("secret", name),
			slog.String("secret_id", id),
			slog.Any("error", err),
		)
	}
}

func (s *SwarmSecretRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *SwarmSecretRepository) translateError(err error, op string) error {
	wrapped := fmt.Errorf("swarm %s: %w", op, err)

	switch {
	case isVersionConflict(err),
		cerrdefs.IsNotFound(err),
		cerrdefs.IsConflict(err),
		cerrdefs.IsAlreadyExists(err),
		cerrdefs.IsInvalidArgument(err),
		cerrdefs.IsPermissionDenied(err),
		cerrdefs.IsUnauthorized(err),
		cerrdefs.IsFailedPrecondition(err),
		cerrdefs.IsNotImplemented(err):
		return appErrors.Join(appErrors.ErrBackendRejected, wrapped)
	default:
		return appErrors.Join(appErrors.ErrBackendUnavailable, wrapped)
	}
}

func isVersionConflict(err error) bool {
	return cerrdefs.IsConflict(err) || strings.Contains(err.Error(), "update out of sequence")
}

var errNoContainerSpec = appErrors.Wrap(appErrors.ErrBackendRejected, "service has no container spec")

func containerSecrets(spec *swarm.ServiceSpec) ([]*swarm.SecretReference, error) {
	if spec.TaskTemplate.ContainerSpec == nil {
		return nil, errNoContainerSpec
	}
	return append([]*swarm.SecretReference(nil), spec.TaskTemplate.ContainerSpec.Secrets...), nil
}

// setContainerSecrets replaces the secret references on a copy of the container
// spec so the inspected service is left untouched.
func setContainerSecrets(spec *swarm.ServiceSpec, refs []*swarm.SecretReference) {
	containerSpec := *spec.TaskTemplate.ContainerSpec
	containerSpec.Secrets = refs
	spec.TaskTemplate.ContainerSpec = &containerSpec
}
