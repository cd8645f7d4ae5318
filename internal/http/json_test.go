package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ValidationField("email", "bad"), http.StatusBadRequest, "validation"},
		{apperrors.Unauthorized("x"), http.StatusUnauthorized, "unauthorized"},
		{apperrors.Forbidden("x"), http.StatusForbidden, "forbidden"},
		{apperrors.NotFound("x"), http.StatusNotFound, "not_found"},
		{apperrors.Conflict("x"), http.StatusConflict, "conflict"},
		{apperrors.Internal("x"), http.StatusInternalServerError, "internal"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code)
	}
}

func TestWriteAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, apperrors.ValidationField("email", "Enter a valid email address"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body["error"])
	assert.Equal(t, "email", body["field"])

	rec = httptest.NewRecorder()
	WriteAppError(rec, errors.New("dial tcp 10.0.0.1: secret detail"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}
