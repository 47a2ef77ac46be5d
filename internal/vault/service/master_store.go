package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	apperrors "github.com/allisson/secretbroker/internal/errors"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
)

// secretValueField is the key under which a secret value is stored in the KV entry.
const secretValueField = "secret_value"

// Config configures the vault connection.
type Config struct {
	Address string
	Timeout time.Duration
	KVMount string
}

// vaultMasterStore implements MasterStore on top of the official vault client.
type vaultMasterStore struct {
	client  *api.Client
	timeout time.Duration
	kvMount string
}

// NewMasterStore creates a MasterStore for the vault at cfg.Address. Client side
// retries are disabled: callers decide whether a failed call is retried.
func NewMasterStore(cfg Config) (MasterStore, error) {
	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", apiCfg.Error)
	}
	apiCfg.Address = cfg.Address
	apiCfg.MaxRetries = 0
	if cfg.Timeout > 0 {
		apiCfg.Timeout = cfg.Timeout
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	// Never pick up a token from the environment; only the recovered root token is used.
	client.ClearToken()

	kvMount := strings.Trim(cfg.KVMount, "/")
	if kvMount == "" {
		kvMount = "secret"
	}

	return &vaultMasterStore{client: client, timeout: cfg.Timeout, kvMount: kvMount}, nil
}

func (v *vaultMasterStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

// IsInitialized reports whether the vault has been initialized.
func (v *vaultMasterStore) IsInitialized(ctx context.Context) (bool, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	initialized, err := v.client.Sys().InitStatusWithContext(ctx)
	if err != nil {
		return false, translateError(err, "check init status")
	}
	return initialized, nil
}

// Initialize initializes the vault and returns the generated recovery material.
// The vault is left sealed.
func (v *vaultMasterStore) Initialize(
	ctx context.Context,
	params vaultDomain.InitParams,
) (*vaultDomain.RecoveryMaterial, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	resp, err := v.client.Sys().InitWithContext(ctx, &api.InitRequest{
		SecretShares:    params.Shares,
		SecretThreshold: params.Threshold,
	})
	if err != nil {
		return nil, translateError(err, "initialize")
	}

	keys := resp.KeysB64
	if len(keys) == 0 {
		keys = resp.Keys
	}
	return &vaultDomain.RecoveryMaterial{RootToken: resp.RootToken, UnsealKeys: keys}, nil
}

// SealStatus returns the seal status of the vault.
func (v *vaultMasterStore) SealStatus(ctx context.Context) (*vaultDomain.Status, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	resp, err := v.client.Sys().SealStatusWithContext(ctx)
	if err != nil {
		return nil, translateError(err, "seal status")
	}
	return statusFromResponse(resp), nil
}

// Unseal submits every key share in order and verifies the vault ends up unsealed.
// Submission stops as soon as the vault reports it is unsealed.
func (v *vaultMasterStore) Unseal(ctx context.Context, keys []string) error {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	var resp *api.SealStatusResponse
	for _, key := range keys {
		var err error
		resp, err = v.client.Sys().UnsealWithContext(ctx, key)
		if err != nil {
			return translateError(err, "unseal")
		}
		if !resp.Sealed {
			return nil
		}
	}

	if resp == nil {
		return apperrors.Wrap(vaultDomain.ErrUnsealFailed, "no unseal keys")
	}
	return apperrors.Wrap(
		vaultDomain.ErrUnsealFailed,
		fmt.Sprintf("vault still sealed after %d of %d shares", resp.Progress, resp.T),
	)
}

// Seal seals the vault. It requires an authenticated client.
func (v *vaultMasterStore) Seal(ctx context.Context) error {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	if err := v.client.Sys().SealWithContext(ctx); err != nil {
		return translateError(err, "seal")
	}
	return nil
}

// Authenticate sets the token used for every following call.
func (v *vaultMasterStore) Authenticate(token string) {
	v.client.SetToken(token)
}

// EnsureKVMount mounts a KV version 1 engine at the configured path when no
// engine is mounted there yet.
func (v *vaultMasterStore) EnsureKVMount(ctx context.Context) error {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	mounts, err := v.client.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return translateError(err, "list mounts")
	}
	if _, ok := mounts[v.kvMount+"/"]; ok {
		return nil
	}

	err = v.client.Sys().MountWithContext(ctx, v.kvMount, &api.MountInput{
		Type:        "kv",
		Description: "secret broker entries",
		Options:     map[string]string{"version": "1"},
	})
	if err != nil {
		return translateError(err, "mount kv engine")
	}
	return nil
}

// SecretClient returns a handle bound to the configured KV mount.
func (v *vaultMasterStore) SecretClient() SecretClient {
	return &vaultSecretClient{store: v}
}

// vaultSecretClient implements SecretClient against a KV version 1 mount.
type vaultSecretClient struct {
	store *vaultMasterStore
}

func (c *vaultSecretClient) kv() *api.KVv1 {
	return c.store.client.KVv1(c.store.kvMount)
}

// ReadSecret reads a named entry.
func (c *vaultSecretClient) ReadSecret(ctx context.Context, name string) (*StoredSecret, error) {
	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	secret, err := c.kv().Get(ctx, name)
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "vault entry %q", name)
		}
		return nil, translateError(err, "read secret")
	}

	raw, ok := secret.Data[secretValueField]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "vault entry %q has no value", name)
	}

	value, ok := raw.(string)
	if !ok {
		value = fmt.Sprint(raw)
	}

	metadata := map[string]string{"mount": c.store.kvMount}
	if secret.Raw != nil {
		if secret.Raw.RequestID != "" {
			metadata["request_id"] = secret.Raw.RequestID
		}
		if secret.Raw.LeaseDuration > 0 {
			metadata["lease_duration"] = fmt.Sprint(secret.Raw.LeaseDuration)
		}
	}

	return &StoredSecret{Name: name, Value: []byte(value), Metadata: metadata}, nil
}

// WriteSecret creates or overwrites a named entry.
func (c *vaultSecretClient) WriteSecret(ctx context.Context, name string, value []byte) error {
	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	if err := c.kv().Put(ctx, name, map[string]interface{}{secretValueField: string(value)}); err != nil {
		return translateError(err, "write secret")
	}
	return nil
}

// DeleteSecret removes a named entry. KV version 1 answers success for absent entries.
func (c *vaultSecretClient) DeleteSecret(ctx context.Context, name string) error {
	ctx, cancel := c.store.withTimeout(ctx)
	defer cancel()

	err := c.kv().Delete(ctx, name)
	if err != nil {
		var respErr *api.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return translateError(err, "delete secret")
	}
	return nil
}

func statusFromResponse(resp *api.SealStatusResponse) *vaultDomain.Status {
	status := &vaultDomain.Status{
		Initialized: resp.Initialized,
		Sealed:      resp.Sealed,
		Shares:      resp.N,
		Threshold:   resp.T,
		Progress:    resp.Progress,
		Version:     resp.Version,
	}
	switch {
	case !resp.Initialized:
		status.State = vaultDomain.StateUninitialized
	case resp.Sealed:
		status.State = vaultDomain.StateSealed
	default:
		status.State = vaultDomain.StateUnsealed
	}
	return status
}

// translateError maps vault client errors to the error taxonomy. Server side
// failures and anything that never got a response (transport errors, deadlines)
// are unavailable; every other response error is a rejection.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("vault %s: %w", op, err)

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode >= http.StatusInternalServerError {
			return apperrors.Join(apperrors.ErrBackendUnavailable, wrapped)
		}
		return apperrors.Join(apperrors.ErrBackendRejected, wrapped)
	}
	return apperrors.Join(apperrors.ErrBackendUnavailable, wrapped)
}
