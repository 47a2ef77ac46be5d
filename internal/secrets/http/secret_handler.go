// Package http provides HTTP handlers for secret management operations.
// The same handler serves the master vault routes and the application secret
// routes; each instance is bound to the use case of one backend.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/secretbroker/internal/httputil"
	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
	"github.com/allisson/secretbroker/internal/secrets/http/dto"
	secretsUseCase "github.com/allisson/secretbroker/internal/secrets/usecase"
	customValidation "github.com/allisson/secretbroker/internal/validation"
)

// SecretHandler handles HTTP requests for secret management operations.
type SecretHandler struct {
	secretUseCase secretsUseCase.SecretUseCase
	logger        *slog.Logger
}

// NewSecretHandler creates a new secret handler with required dependencies.
func NewSecretHandler(secretUseCase secretsUseCase.SecretUseCase, logger *slog.Logger) *SecretHandler {
	return &SecretHandler{
		secretUseCase: secretUseCase,
		logger:        logger,
	}
}

// CreateHandler creates a new secret.
// POST /v1/secrets, POST /v1/appsecrets - body {"name", "value", "service"}.
// Returns 201 Created with secret metadata (the value is not echoed).
func (h *SecretHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := h.secretUseCase.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSecretToWriteResponse(secret))
}

// GetHandler reads a secret by name.
// GET /v1/secrets/:name, GET /v1/appsecrets/:name?service=
func (h *SecretHandler) GetHandler(c *gin.Context) {
	key, ok := h.secretKey(c)
	if !ok {
		return
	}

	secret, err := h.secretUseCase.Get(c.Request.Context(), key)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretToGetResponse(secret))
}

// UpdateHandler replaces the value of an existing secret.
// PUT /v1/secrets/:name, PUT /v1/appsecrets/:name - body {"value", "service"}.
// Returns 404 when the secret does not exist.
func (h *SecretHandler) UpdateHandler(c *gin.Context) {
	key, ok := h.secretKey(c)
	if !ok {
		return
	}

	var req dto.UpdateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := h.secretUseCase.Update(c.Request.Context(), req.ToDomain(key.Name))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretToWriteResponse(secret))
}

// DeleteHandler deletes a secret by name.
// DELETE /v1/secrets/:name, DELETE /v1/appsecrets/:name?service=
func (h *SecretHandler) DeleteHandler(c *gin.Context) {
	key, ok := h.secretKey(c)
	if !ok {
		return
	}

	if err := h.secretUseCase.Delete(c.Request.Context(), key); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeleteResponse(key.Name))
}

// secretKey extracts the secret name from the URL and the optional service from the query.
func (h *SecretHandler) secretKey(c *gin.Context) (secretsDomain.SecretKey, bool) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		httputil.HandleValidationErrorGin(
			c,
			customValidation.WrapValidationError(fmt.Errorf("name cannot be empty")),
			h.logger,
		)
		return secretsDomain.SecretKey{}, false
	}

	return secretsDomain.SecretKey{Name: name, Service: c.Query("service")}, true
}
