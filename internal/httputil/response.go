// Package httputil maps broker errors to JSON error responses.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/secretbroker/internal/errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorRule maps one sentinel to a response. A rule without a message echoes the
// error text to the client.
type errorRule struct {
	kind    error
	status  int
	code    string
	message string
}

// errorRules is evaluated in order. Lifecycle failures come first because they
// wrap a cause that may match a more specific sentinel.
var errorRules = []errorRule{
	{apperrors.ErrLifecycleFatal, http.StatusServiceUnavailable, "vault_unavailable", "The master vault is not ready"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend_unavailable",
		"The secret backend is unavailable, try again later"},
	{apperrors.ErrPersistenceFailed, http.StatusServiceUnavailable, "persistence_failed",
		"Recovery material could not be read or written"},
	{apperrors.ErrBackendRejected, http.StatusBadGateway, "backend_rejected", ""},
}

func classify(err error) (int, ErrorResponse) {
	for _, rule := range errorRules {
		if !apperrors.Is(err, rule.kind) {
			continue
		}
		message := rule.message
		if message == "" {
			message = err.Error()
		}
		return rule.status, ErrorResponse{Error: rule.code, Message: message}
	}

	// internal details stay in the logs
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}
}

// HandleErrorGin writes the response matching err and logs the full error chain.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, body := classify(err)

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", body.Error),
			slog.String("request_id", requestid.Get(c)),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, body)
}

// HandleBadRequestGin writes a 400 response for a body or parameter that could not be parsed.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", err, logger)
}

// HandleValidationErrorGin writes a 422 response for a request that failed validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", err, logger)
}

func writeClientError(c *gin.Context, status int, code string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("rejected request",
			slog.String("error_code", code),
			slog.String("request_id", requestid.Get(c)),
			slog.Any("error", err),
		)
	}

	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
