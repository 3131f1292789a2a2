package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServiceError
		status int
		code   ErrorCode
	}{
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, CodeForbidden},
		{"not found", NotFound("missing"), http.StatusNotFound, CodeNotFound},
		{"validation", Validation("bad", nil), http.StatusBadRequest, CodeValidation},
		{"conflict renders as 400", Conflict("Username already exists"), http.StatusBadRequest, CodeConflict},
		{"integrity", Integrity("seller missing"), http.StatusInternalServerError, CodeIntegrity},
		{"internal", Internal("failed", fmt.Errorf("db down")), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestGetServiceErrorThroughWrapping(t *testing.T) {
	base := NotFound("Product not found")
	wrapped := fmt.Errorf("get product: %w", base)

	got := GetServiceError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "Product not found", got.Message)
	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.Nil(t, GetServiceError(fmt.Errorf("plain")))
}

func TestUnauthorizedDefaultMessage(t *testing.T) {
	assert.Equal(t, "Authentication required", Unauthorized("").Message)
}
