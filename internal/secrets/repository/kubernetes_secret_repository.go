package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"

	appErrors "github.com/allisson/secretbroker/internal/errors"
	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

// BackendKubernetes is the name of the Kubernetes backend.
const BackendKubernetes = "kubernetes"

const managedByLabel = "app.kubernetes.io/managed-by"

// KubernetesConfig holds the location of the aggregate Secret object.
type KubernetesConfig struct {
	Namespace  string
	SecretName string
	Timeout    time.Duration
}

// KubernetesSecretRepository keeps every secret as one entry of a single Opaque
// Secret object. Writes are get-modify-replace cycles guarded by the object
// resourceVersion and retried on conflict.
type KubernetesSecretRepository struct {
	client    kubernetes.Interface
	namespace string
	name      string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewKubernetesSecretRepository creates a new KubernetesSecretRepository.
func NewKubernetesSecretRepository(
	client kubernetes.Interface,
	cfg KubernetesConfig,
	logger *slog.Logger,
) *KubernetesSecretRepository {
	return &KubernetesSecretRepository{
		client:    client,
		namespace: cfg.Namespace,
		name:      cfg.SecretName,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Name returns the backend name.
func (k *KubernetesSecretRepository) Name() string {
	return BackendKubernetes
}

// Create adds the entry to the aggregate object, replacing an existing value.
func (k *KubernetesSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()

	updated, err := k.modify(ctx, func(data map[string][]byte) (bool, error) {
		data[secret.Name] = secret.Value
		return true, nil
	})
	if err != nil {
		return k.translateError(err, "create secret")
	}

	k.fill(secret, updated)
	return nil
}

// Read returns the entry stored under key.Name.
func (k *KubernetesSecretRepository) Read(
	ctx context.Context,
	key secretsDomain.SecretKey,
) (*secretsDomain.Secret, error) {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()

	aggregate, err := k.ensure(ctx)
	if err != nil {
		return nil, k.translateError(err, "read secret")
	}

	value, ok := aggregate.Data[key.Name]
	if !ok {
		return nil, secretsDomain.ErrSecretNotFound
	}

	secret := &secretsDomain.Secret{Name: key.Name, Value: value}
	k.fill(secret, aggregate)
	return secret, nil
}

// Update replaces the value of an existing entry.
func (k *KubernetesSecretRepository) Update(ctx context.Context, secret *secretsDomain.Secret) error {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()

	updated, err := k.modify(ctx, func(data map[string][]byte) (bool, error) {
		if _, ok := data[secret.Name]; !ok {
			return false, secretsDomain.ErrSecretNotFound
		}
		data[secret.Name] = secret.Value
		return true, nil
	})
	if err != nil {
		return k.translateError(err, "update secret")
	}

	k.fill(secret, updated)
	return nil
}

// Delete removes the entry. An absent entry is not an error and causes no write.
func (k *KubernetesSecretRepository) Delete(ctx context.Context, key secretsDomain.SecretKey) error {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()

	_, err := k.modify(ctx, func(data map[string][]byte) (bool, error) {
		if _, ok := data[key.Name]; !ok {
			return false, nil
		}
		delete(data, key.Name)
		return true, nil
	})
	if err != nil {
		return k.translateError(err, "delete secret")
	}
	return nil
}

// modify runs mutate against a fresh copy of the aggregate data and replaces the
// object when mutate reports a change. Conflicting writes are retried.
func (k *KubernetesSecretRepository) modify(
	ctx context.Context,
	mutate func(data map[string][]byte) (bool, error),
) (*corev1.Secret, error) {
	var result *corev1.Secret

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		aggregate, err := k.ensure(ctx)
		if err != nil {
			return err
		}

		aggregate = aggregate.DeepCopy()
		if aggregate.Data == nil {
			aggregate.Data = make(map[string][]byte)
		}

		changed, err := mutate(aggregate.Data)
		if err != nil {
			return err
		}
		if !changed {
			result = aggregate
			return nil
		}

		updated, err := k.client.CoreV1().Secrets(k.namespace).Update(ctx, aggregate, metav1.UpdateOptions{})
		if err != nil {
			if apierrors.IsConflict(err) {
				k.logger.Debug("aggregate secret changed concurrently, retrying",
					slog.String("namespace", k.namespace),
					slog.String("object", k.name),
				)
			}
			return err
		}

		result = updated
		return nil
	})

	return result, err
}

// ensure returns the aggregate object, creating it when it does not exist yet.
func (k *KubernetesSecretRepository) ensure(ctx context.Context) (*corev1.Secret, error) {
	secrets := k.client.CoreV1().Secrets(k.namespace)

	aggregate, err := secrets.Get(ctx, k.name, metav1.GetOptions{})
	if err == nil {
		return aggregate, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, err
	}

	created, err := secrets.Create(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k.name,
			Namespace: k.namespace,
			Labels:    map[string]string{managedByLabel: "secretbroker"},
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{},
	}, metav1.CreateOptions{})
	if err == nil {
		k.logger.Info("aggregate secret created",
			slog.String("namespace", k.namespace),
			slog.String("object", k.name),
		)
		return created, nil
	}
	if apierrors.IsAlreadyExists(err) {
		// created by a concurrent request
		return secrets.Get(ctx, k.name, metav1.GetOptions{})
	}
	return nil, err
}

func (k *KubernetesSecretRepository) fill(secret *secretsDomain.Secret, aggregate *corev1.Secret) {
	if aggregate == nil {
		return
	}

	secret.ID = string(aggregate.UID)
	if version, err := strconv.ParseUint(aggregate.ResourceVersion, 10, 64); err == nil {
		secret.Version = version
	}
	if !aggregate.CreationTimestamp.IsZero() {
		secret.CreatedAt = aggregate.CreationTimestamp.UTC()
	}
	secret.Metadata = map[string]string{
		"namespace":        k.namespace,
		"object":           k.name,
		"resource_version": aggregate.ResourceVersion,
	}
}

func (k *KubernetesSecretRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, k.timeout)
}

// translateError maps client-go failures to the errors taxonomy. Domain errors
// returned from a mutation pass through untouched.
func (k *KubernetesSecretRepository) translateError(err error, op string) error {
	if errors.Is(err, secretsDomain.ErrSecretNotFound) {
		return err
	}

	wrapped := fmt.Errorf("kubernetes %s: %w", op, err)

	var statusErr apierrors.APIStatus
	if !errors.As(err, &statusErr) {
		return appErrors.Join(appErrors.ErrBackendUnavailable, wrapped)
	}

	switch {
	case apierrors.IsTimeout(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsUnexpectedServerError(err):
		return appErrors.Join(appErrors.ErrBackendUnavailable, wrapped)
	default:
		return appErrors.Join(appErrors.ErrBackendRejected, wrapped)
	}
}
