// Package http provides HTTP handlers for the master vault lifecycle.
package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/secretbroker/internal/httputil"
	customValidation "github.com/allisson/secretbroker/internal/validation"
	vaultDomain "github.com/allisson/secretbroker/internal/vault/domain"
	"github.com/allisson/secretbroker/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// VaultHandler handles HTTP requests for vault initialization and status.
type VaultHandler struct {
	lifecycle vaultUseCase.LifecycleUseCase
	defaults  vaultDomain.InitParams
	logger    *slog.Logger
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(
	lifecycle vaultUseCase.LifecycleUseCase,
	defaults vaultDomain.InitParams,
	logger *slog.Logger,
) *VaultHandler {
	return &VaultHandler{lifecycle: lifecycle, defaults: defaults, logger: logger}
}

// InitHandler initializes the vault.
// POST /v1/vaults - body {"shares": N, "threshold": M}, both optional.
// Returns 201 on initialization and 200 with "vault_exists" when it was already initialized.
func (h *VaultHandler) InitHandler(c *gin.Context) {
	var req dto.InitVaultRequest

	// An empty body means "use the defaults"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.lifecycle.Initialize(c.Request.Context(), req.ToInitParams(h.defaults))
	if err != nil {
		if errors.Is(err, vaultDomain.ErrAlreadyInitialized) {
			h.logger.Info("vault already initialized")
			c.JSON(http.StatusOK, dto.MapInitResultToResponse(result))
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapInitResultToResponse(result))
}

// StatusHandler reports the vault state.
// GET /v1/vaults/status
func (h *VaultHandler) StatusHandler(c *gin.Context) {
	status, err := h.lifecycle.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatusToResponse(status))
}
