package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/allisson/secretbroker/internal/errors"
	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
	secretsUseCase "github.com/allisson/secretbroker/internal/secrets/usecase"
)

// fakeSwarm is an in-memory swarm manager. Services are addressed by name or ID
// and updates are rejected when the submitted version is stale.
type fakeSwarm struct {
	mu sync.Mutex

	nextID   int
	secrets  map[string]swarm.Secret
	services map[string]*swarm.Service

	updateErrs        []error
	concurrentUpdates int
	removeErr         error
	listErr           error
	calls             map[string]int
}

func newFakeSwarm() *fakeSwarm {
	return &fakeSwarm{
		secrets:  make(map[string]swarm.Secret),
		services: make(map[string]*swarm.Service),
		calls:    make(map[string]int),
	}
}

func (f *fakeSwarm) addService(name string, refs ...*swarm.SecretReference) {
	f.mu.Lock()
	defer f.mu.Unlock()

	service := &swarm.Service{ID: "svc-" + name}
	service.Version.Index = 10
	service.Spec.Name = name
	service.Spec.TaskTemplate.ContainerSpec = &swarm.ContainerSpec{Image: "nginx:latest", Secrets: refs}
	f.services[service.ID] = service
}

func (f *fakeSwarm) addSecret(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeSecret(swarm.SecretSpec{Annotations: swarm.Annotations{Name: name}})
}

func (f *fakeSwarm) storeSecret(spec swarm.SecretSpec) string {
	f.nextID++
	id := fmt.Sprintf("sec-%d", f.nextID)
	secret := swarm.Secret{ID: id, Spec: spec}
	secret.Version.Index = 1
	secret.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f.secrets[id] = secret
	return id
}

func (f *fakeSwarm) lookupService(nameOrID string) (*swarm.Service, bool) {
	if service, ok := f.services[nameOrID]; ok {
		return service, true
	}
	for _, service := range f.services {
		if service.Spec.Name == nameOrID {
			return service, true
		}
	}
	return nil, false
}

func (f *fakeSwarm) serviceRefs(name string) []*swarm.SecretReference {
	f.mu.Lock()
	defer f.mu.Unlock()
	service, _ := f.lookupService(name)
	return service.Spec.TaskTemplate.ContainerSpec.Secrets
}

func (f *fakeSwarm) secretCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.secrets)
}

func (f *fakeSwarm) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func copyService(service *swarm.Service) swarm.Service {
	out := *service
	containerSpec := *service.Spec.TaskTemplate.ContainerSpec
	containerSpec.Secrets = append([]*swarm.SecretReference(nil), containerSpec.Secrets...)
	out.Spec.TaskTemplate.ContainerSpec = &containerSpec
	return out
}

func (f *fakeSwarm) SecretCreate(ctx context.Context, spec swarm.SecretSpec) (types.SecretCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SecretCreate"]++

	for _, secret := range f.secrets {
		if secret.Spec.Name == spec.Name {
			return types.SecretCreateResponse{}, fmt.Errorf("secret %s: %w", spec.Name, cerrdefs.ErrConflict)
		}
	}
	return types.SecretCreateResponse{ID: f.storeSecret(spec)}, nil
}

func (f *fakeSwarm) SecretList(ctx context.Context, options types.SecretListOptions) ([]swarm.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SecretList"]++

	if f.listErr != nil {
		return nil, f.listErr
	}

	names := options.Filters.Get("name")
	var out []swarm.Secret
	for _, secret := range f.secrets {
		for _, name := range names {
			if strings.HasPrefix(secret.Spec.Name, name) {
				out = append(out, secret)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSwarm) SecretRemove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SecretRemove"]++

	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.secrets[id]; !ok {
		return fmt.Errorf("secret %s: %w", id, cerrdefs.ErrNotFound)
	}
	delete(f.secrets, id)
	return nil
}

func (f *fakeSwarm) ServiceInspectWithRaw(
	ctx context.Context,
	serviceID string,
	options types.ServiceInspectOptions,
) (swarm.Service, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ServiceInspectWithRaw"]++

	service, ok := f.lookupService(serviceID)
	if !ok {
		return swarm.Service{}, nil, fmt.Errorf("service %s not found: %w", serviceID, cerrdefs.ErrNotFound)
	}
	return copyService(service), nil, nil
}

func (f *fakeSwarm) ServiceList(ctx context.Context, options types.ServiceListOptions) ([]swarm.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ServiceList"]++

	out := make([]swarm.Service, 0, len(f.services))
	for _, service := range f.services {
		out = append(out, copyService(service))
	}
	return out, nil
}

func (f *fakeSwarm) ServiceUpdate(
	ctx context.Context,
	serviceID string,
	version swarm.Version,
	spec swarm.ServiceSpec,
	options types.ServiceUpdateOptions,
) (swarm.ServiceUpdateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ServiceUpdate"]++

	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		return swarm.ServiceUpdateResponse{}, err
	}

	service, ok := f.lookupService(serviceID)
	if !ok {
		return swarm.ServiceUpdateResponse{}, fmt.Errorf("service %s: %w", serviceID, cerrdefs.ErrNotFound)
	}

	if f.concurrentUpdates > 0 {
		f.concurrentUpdates--
		service.Version.Index++
	}
	if service.Version.Index != version.Index {
		return swarm.ServiceUpdateResponse{}, errors.New("rpc error: code = Unknown desc = update out of sequence")
	}

	service.Spec = spec
	service.Version.Index++
	return swarm.ServiceUpdateResponse{}, nil
}

var _ SwarmClient = (*fakeSwarm)(nil)

func setupSwarmRepository(t *testing.T) (*SwarmSecretRepository, *fakeSwarm) {
	t.Helper()

	fake := newFakeSwarm()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewSwarmSecretRepository(fake, 5*time.Second, logger), fake
}

func TestSwarmSecretRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_AttachesSecretToService", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		existing := &swarm.SecretReference{SecretID: "sec-old", SecretName: "tls-cert"}
		fake.addService("api", existing)

		secret := &secretsDomain.Secret{Name: "db-password", Value: []byte("s3cr3t"), Service: "api"}
		require.NoError(t, repo.Create(ctx, secret))

		refs := fake.serviceRefs("api")
		require.Len(t, refs, 2)
		assert.Equal(t, "tls-cert", refs[0].SecretName)
		assert.Equal(t, "db-password", refs[1].SecretName)
		assert.Equal(t, secret.ID, refs[1].SecretID)
		assert.Equal(t, "db-password", refs[1].File.Name)

		assert.Equal(t, "svc-api", secret.Metadata["service_id"])
		assert.Equal(t, uint64(10), secret.Version)
		assert.Equal(t, 1, fake.secretCount())
	})

	t.Run("Error_MissingServiceCreatesNothing", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)

		err := repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "ghost"})

		assert.ErrorIs(t, err, secretsDomain.ErrServiceNotFound)
		assert.ErrorIs(t, err, appErrors.ErrBackendRejected)
		assert.Equal(t, 0, fake.callCount("SecretCreate"))
		assert.Equal(t, 0, fake.secretCount())
	})

	t.Run("Error_ServiceRequired", func(t *testing.T) {
		repo, _ := setupSwarmRepository(t)

		err := repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v")})

		assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
	})

	t.Run("Error_NameCollision", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		fake.addSecret("db-password")

		err := repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"})

		assert.ErrorIs(t, err, secretsDomain.ErrSecretExists)
		assert.ErrorIs(t, err, appErrors.ErrBackendRejected)
		assert.Empty(t, fake.serviceRefs("api"))
		assert.Equal(t, 0, fake.callCount("ServiceUpdate"))
	})

	t.Run("Success_RetriesOnceOnVersionConflict", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		fake.concurrentUpdates = 1

		require.NoError(t, repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"}))

		assert.Equal(t, 2, fake.callCount("ServiceUpdate"))
		assert.Len(t, fake.serviceRefs("api"), 1)
	})

	t.Run("Error_SecondConflictRemovesNewSecret", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		fake.concurrentUpdates = 2

		err := repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"})

		assert.ErrorIs(t, err, appErrors.ErrBackendRejected)
		assert.Equal(t, 2, fake.callCount("ServiceUpdate"))
		assert.Equal(t, 0, fake.secretCount())
		assert.Empty(t, fake.serviceRefs("api"))
	})

	t.Run("Error_AttachFailureLeavesNoOrphan", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		fake.updateErrs = []error{fmt.Errorf("manager unreachable: %w", cerrdefs.ErrUnavailable)}

		err := repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"})

		assert.ErrorIs(t, err, appErrors.ErrBackendUnavailable)
		assert.Equal(t, 1, fake.callCount("SecretRemove"))
		assert.Equal(t, 0, fake.secretCount())
	})
}

func TestContainerSecrets(t *testing.T) {
	spec := &swarm.ServiceSpec{}
	spec.TaskTemplate.PluginSpec = &swarm.RuntimeSpec{Name: "plugin"}

	_, err := containerSecrets(spec)
	assert.ErrorIs(t, err, appErrors.ErrBackendRejected)

	ref := &swarm.SecretReference{SecretID: "sec-1", SecretName: "db-password"}
	spec.TaskTemplate.ContainerSpec = &swarm.ContainerSpec{Secrets: []*swarm.SecretReference{ref}}
	original := spec.TaskTemplate.ContainerSpec

	refs, err := containerSecrets(spec)
	require.NoError(t, err)
	setContainerSecrets(spec, refs[:0])

	assert.Len(t, original.Secrets, 1)
	assert.Empty(t, spec.TaskTemplate.ContainerSpec.Secrets)
}

func TestSwarmSecretRepository_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_MetadataOnly", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		require.NoError(t, repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"}))

		secret, err := repo.Read(ctx, secretsDomain.SecretKey{Name: "db-password"})

		require.NoError(t, err)
		assert.Empty(t, secret.Value)
		assert.Equal(t, "db-password", secret.Name)
		assert.Equal(t, "api", secret.Service)
		assert.Equal(t, "true", secret.Metadata[swarmManagedLabel])
		assert.False(t, secret.CreatedAt.IsZero())
	})

	t.Run("Error_PrefixMatchIsNotFound", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addSecret("db-password")

		_, err := repo.Read(ctx, secretsDomain.SecretKey{Name: "db"})

		assert.ErrorIs(t, err, appErrors.ErrNotFound)
	})

	t.Run("Error_ManagerUnreachable", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.listErr = errors.New("dial unix /var/run/docker.sock: connect: no such file or directory")

		_, err := repo.Read(ctx, secretsDomain.SecretKey{Name: "db-password"})

		assert.ErrorIs(t, err, appErrors.ErrBackendUnavailable)
		assert.NotErrorIs(t, err, appErrors.ErrNotFound)
	})
}

func TestSwarmSecretRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_ExistingSecretIsImmutable", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addSecret("db-password")

		err := repo.Update(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("new")})

		assert.ErrorIs(t, err, secretsDomain.ErrSecretImmutable)
		assert.ErrorIs(t, err, appErrors.ErrBackendRejected)
	})

	t.Run("Error_MissingSecret", func(t *testing.T) {
		repo, _ := setupSwarmRepository(t)

		err := repo.Update(ctx, &secretsDomain.Secret{Name: "missing-key", Value: []byte("new")})

		assert.ErrorIs(t, err, appErrors.ErrNotFound)
	})
}

func TestSwarmSecretRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_DetachesAndRemovesUnreferencedSecret", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		require.NoError(t, repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"}))

		require.NoError(t, repo.Delete(ctx, secretsDomain.SecretKey{Name: "db-password", Service: "api"}))

		assert.Empty(t, fake.serviceRefs("api"))
		assert.Equal(t, 0, fake.secretCount())
	})

	t.Run("Success_KeepsSecretReferencedByAnotherService", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		id := fake.addSecret("db-password")
		ref := &swarm.SecretReference{SecretID: id, SecretName: "db-password"}
		fake.addService("api", ref)
		fake.addService("worker", ref)

		require.NoError(t, repo.Delete(ctx, secretsDomain.SecretKey{Name: "db-password", Service: "api"}))

		assert.Empty(t, fake.serviceRefs("api"))
		assert.Len(t, fake.serviceRefs("worker"), 1)
		assert.Equal(t, 1, fake.secretCount())
	})

	t.Run("Error_NotReferenced", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")

		err := repo.Delete(ctx, secretsDomain.SecretKey{Name: "db-password", Service: "api"})

		assert.ErrorIs(t, err, appErrors.ErrNotFound)
		assert.Equal(t, 0, fake.callCount("ServiceUpdate"))
	})

	t.Run("Error_MissingService", func(t *testing.T) {
		repo, _ := setupSwarmRepository(t)

		err := repo.Delete(ctx, secretsDomain.SecretKey{Name: "db-password", Service: "ghost"})

		assert.ErrorIs(t, err, secretsDomain.ErrServiceNotFound)
	})

	t.Run("Error_ServiceRequired", func(t *testing.T) {
		repo, _ := setupSwarmRepository(t)

		err := repo.Delete(ctx, secretsDomain.SecretKey{Name: "db-password"})

		assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
	})

	t.Run("Success_RemovalFailureIsLoggedOnly", func(t *testing.T) {
		repo, fake := setupSwarmRepository(t)
		fake.addService("api")
		require.NoError(t, repo.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("v"), Service: "api"}))
		fake.removeErr = errors.New("secret is in use by another task")

		require.NoError(t, repo.Delete(ctx, secretsDomain.SecretKey{Name: "db-password", Service: "api"}))

		assert.Empty(t, fake.serviceRefs("api"))
		assert.Equal(t, 1, fake.secretCount())
	})
}

func TestSwarmSecretRepository_FullScenario(t *testing.T) {
	ctx := context.Background()

	repo, fake := setupSwarmRepository(t)
	fake.addService("api")
	useCase := secretsUseCase.NewSecretUseCase(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := useCase.Create(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("s3cr3t"), Service: "api"})
	require.NoError(t, err)

	secret, err := useCase.Get(ctx, secretsDomain.SecretKey{Name: "db-password"})
	require.NoError(t, err)
	assert.Equal(t, "api", secret.Service)

	_, err = useCase.Update(ctx, &secretsDomain.Secret{Name: "db-password", Value: []byte("rotated")})
	assert.ErrorIs(t, err, appErrors.ErrBackendRejected)

	_, err = useCase.Update(ctx, &secretsDomain.Secret{Name: "missing-key", Value: []byte("v")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, useCase.Delete(ctx, secretsDomain.SecretKey{Name: "db-password", Service: "api"}))

	_, err = useCase.Get(ctx, secretsDomain.SecretKey{Name: "db-password"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = useCase.Create(ctx, &secretsDomain.Secret{Name: "orphan", Value: []byte("v"), Service: "ghost"})
	assert.Error(t, err)
	assert.Equal(t, 0, fake.secretCount())
}
