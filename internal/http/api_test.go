package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/secretbroker/internal/config"
	secretsHTTP "github.com/allisson/secretbroker/internal/secrets/http"
	secretsRepository "github.com/allisson/secretbroker/internal/secrets/repository"
	secretsUseCase "github.com/allisson/secretbroker/internal/secrets/usecase"
	"github.com/allisson/secretbroker/internal/testutil"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
	vaultHTTP "github.com/allisson/secretbroker/internal/vault/http"
	vaultRepository "github.com/allisson/secretbroker/internal/vault/repository"
	vaultService "github.com/allisson/secretbroker/internal/vault/service"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// setupBroker wires the real vault lifecycle and secret stack against a fake vault.
func setupBroker(t *testing.T, fake *testutil.FakeVault, policy vaultUseCase.SealPolicy) *gin.Engine {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := discardLogger()
	store, err := vaultService.NewMasterStore(vaultService.Config{
		Address: fake.URL(),
		Timeout: 2 * time.Second,
		KVMount: "secret",
	})
	require.NoError(t, err)

	defaults := vaultDomain.DefaultInitParams()
	lifecycle := vaultUseCase.NewLifecycleUseCase(
		store,
		vaultRepository.NewFileRecoveryMaterialRepository(t.TempDir()),
		vaultUseCase.Config{Defaults: defaults, Policy: policy, SealTimeout: time.Second},
		logger,
	)
	useCase := secretsUseCase.NewSecretUseCase(secretsRepository.NewVaultSecretRepository(lifecycle), logger)

	server := NewServer(lifecycle, "localhost", 8080, logger)
	server.SetupRouter(
		ctx,
		&config.Config{LogLevel: "debug"},
		vaultHTTP.NewVaultHandler(lifecycle, defaults, logger),
		secretsHTTP.NewSecretHandler(useCase, logger),
		nil,
		nil,
		"secretbroker",
	)
	return server.router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w.Code, response
}

func TestBrokerAPI_SecretLifecycle(t *testing.T) {
	for _, policy := range []vaultUseCase.SealPolicy{vaultUseCase.SealLongLived, vaultUseCase.SealPerOperation} {
		t.Run(string(policy), func(t *testing.T) {
			fake := testutil.NewFakeVault(t)
			router := setupBroker(t, fake, policy)

			code, body := doJSON(t, router, http.MethodGet, "/ready", nil)
			assert.Equal(t, http.StatusServiceUnavailable, code)
			assert.Equal(t, "not_ready", body["status"])

			// the first secret operation initializes and unseals the vault
			code, body = doJSON(t, router, http.MethodPost, "/v1/secrets", map[string]string{
				"name":  "db-password",
				"value": "s3cr3t",
			})
			require.Equal(t, http.StatusCreated, code)
			assert.Equal(t, "db-password", body["name"])
			assert.NotContains(t, body, "value")
			assert.Equal(t, 1, fake.InitCount())

			code, _ = doJSON(t, router, http.MethodGet, "/ready", nil)
			assert.Equal(t, http.StatusOK, code)

			code, body = doJSON(t, router, http.MethodPost, "/v1/vaults", map[string]int{"shares": 3, "threshold": 2})
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "vault_exists", body["message"])

			code, body = doJSON(t, router, http.MethodGet, "/v1/secrets/db-password", nil)
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, "s3cr3t", body["value"])

			code, _ = doJSON(t, router, http.MethodPut, "/v1/secrets/db-password", map[string]string{"value": "rotated"})
			require.Equal(t, http.StatusOK, code)

			code, body = doJSON(t, router, http.MethodGet, "/v1/secrets/db-password", nil)
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, "rotated", body["value"])

			code, body = doJSON(t, router, http.MethodDelete, "/v1/secrets/db-password", nil)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "secret_deleted", body["message"])

			code, _ = doJSON(t, router, http.MethodDelete, "/v1/secrets/db-password", nil)
			assert.Equal(t, http.StatusOK, code)

			code, body = doJSON(t, router, http.MethodGet, "/v1/secrets/db-password", nil)
			assert.Equal(t, http.StatusNotFound, code)
			assert.Equal(t, "not_found", body["error"])
			assert.NotContains(t, body, "code")

			code, _ = doJSON(t, router, http.MethodPut, "/v1/secrets/missing-key", map[string]string{"value": "v"})
			assert.Equal(t, http.StatusNotFound, code)

			code, body = doJSON(t, router, http.MethodGet, "/v1/vaults/status", nil)
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, true, body["initialized"])
			assert.Equal(t, policy == vaultUseCase.SealPerOperation, fake.Sealed())
			assert.Equal(t, 1, fake.InitCount())
		})
	}
}

func TestBrokerAPI_ExplicitInitialization(t *testing.T) {
	fake := testutil.NewFakeVault(t)
	router := setupBroker(t, fake, vaultUseCase.SealLongLived)

	code, body := doJSON(t, router, http.MethodPost, "/v1/vaults", map[string]int{"shares": 3, "threshold": 2})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "init_vault_success", body["message"])
	assert.Equal(t, float64(3), body["shares"])
	assert.Len(t, fake.UnsealKeys(), 3)

	code, _ = doJSON(t, router, http.MethodPost, "/v1/secrets", map[string]string{"name": "api-key", "value": "v"})
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 1, fake.InitCount())
}

func TestBrokerAPI_VaultUnavailable(t *testing.T) {
	fake := testutil.NewFakeVault(t)
	router := setupBroker(t, fake, vaultUseCase.SealLongLived)
	fake.Close()

	code, body := doJSON(t, router, http.MethodGet, "/v1/secrets/db-password", nil)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "vault_unavailable", body["error"])
}

func TestBrokerAPI_InvalidInput(t *testing.T) {
	fake := testutil.NewFakeVault(t)
	router := setupBroker(t, fake, vaultUseCase.SealLongLived)

	code, _ := doJSON(t, router, http.MethodPost, "/v1/secrets", map[string]string{"name": "db password", "value": "v"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = doJSON(t, router, http.MethodPost, "/v1/vaults", map[string]int{"shares": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	assert.Equal(t, 0, fake.InitCount())
}
