package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/secretbroker/internal/errors"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "not found",
			err:          apperrors.Wrap(apperrors.ErrNotFound, "secret not found"),
			expectedCode: http.StatusNotFound,
			expectedErr:  "not_found",
		},
		{
			name:         "conflict",
			err:          apperrors.ErrConflict,
			expectedCode: http.StatusConflict,
			expectedErr:  "conflict",
		},
		{
			name:         "invalid input",
			err:          apperrors.Wrap(apperrors.ErrInvalidInput, "name cannot be blank"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "invalid_input",
		},
		{
			name:         "backend unavailable",
			err:          apperrors.Join(apperrors.ErrBackendUnavailable, errors.New("dial tcp: refused")),
			expectedCode: http.StatusServiceUnavailable,
			expectedErr:  "backend_unavailable",
		},
		{
			name:         "backend rejected",
			err:          apperrors.Join(apperrors.ErrBackendRejected, errors.New("update out of sequence")),
			expectedCode: http.StatusBadGateway,
			expectedErr:  "backend_rejected",
		},
		{
			name:         "persistence failed",
			err:          apperrors.ErrPersistenceFailed,
			expectedCode: http.StatusServiceUnavailable,
			expectedErr:  "persistence_failed",
		},
		{
			name: "lifecycle fatal wins over wrapped cause",
			err: apperrors.Join(
				apperrors.ErrLifecycleFatal,
				apperrors.Join(apperrors.ErrInvalidInput, errors.New("bad defaults")),
			),
			expectedCode: http.StatusServiceUnavailable,
			expectedErr:  "vault_unavailable",
		},
		{
			name:         "unknown error",
			err:          errors.New("boom"),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()

			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedCode, w.Code)
			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedErr, response.Error)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newTestContext()
		HandleErrorGin(c, nil, nil)
		assert.Empty(t, w.Body.String())
	})

	t.Run("body carries only error and message", func(t *testing.T) {
		c, w := newTestContext()
		HandleErrorGin(c, apperrors.Wrap(apperrors.ErrNotFound, "secret db-password"), nil)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, map[string]any{
			"error":   "not_found",
			"message": "The requested resource was not found",
		}, body)
	})

	t.Run("internal error hides details", func(t *testing.T) {
		c, w := newTestContext()
		HandleErrorGin(c, errors.New("database password is hunter2"), nil)
		assert.NotContains(t, w.Body.String(), "hunter2")
	})
}

func TestHandleBadRequestGin(t *testing.T) {
	c, w := newTestContext()

	HandleBadRequestGin(c, errors.New("invalid character"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestHandleValidationErrorGin(t *testing.T) {
	c, w := newTestContext()

	HandleValidationErrorGin(c, errors.New("value: cannot be blank."), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
	assert.Contains(t, w.Body.String(), "cannot be blank")
}
