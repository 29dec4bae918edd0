package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/condo-bookings/internal/domain"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validation("bad"), http.StatusBadRequest, domain.CodeInvalidInput},
		{domain.Conflict(domain.CodeNotAvailable, "taken"), http.StatusBadRequest, domain.CodeNotAvailable},
		{domain.InvalidState(domain.CodeTooEarly, "wait"), http.StatusBadRequest, domain.CodeTooEarly},
		{fmt.Errorf("wrapped: %w", domain.NotFound("gone")), http.StatusNotFound, domain.CodeNotFound},
		{domain.Unauthorized(domain.CodeInvalidCredential, "no"), http.StatusUnauthorized, domain.CodeInvalidCredential},
		{domain.Forbidden("no"), http.StatusForbidden, domain.CodeForbidden},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, domain.CodeInternal},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		assert.Equal(t, tt.code, decode(t, rec).Code)
	}
}

func TestWriteDomainError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=hunter2"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestWriteDomainError_UsesMessageOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("create booking: %w", domain.Conflict(domain.CodeNotAvailable, "not available"))
	WriteDomainError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
	assert.Equal(t, "not available", decode(t, rec).Error)
}

func TestWriteValidation(t *testing.T) {
	type req struct {
		Email string `json:"email" validate:"required,email"`
		Count int    `json:"count" validate:"min=1"`
	}
	err := validator.New().Struct(req{Email: "x"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidation(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)
	body := decode(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, body.Details, 2)
}
