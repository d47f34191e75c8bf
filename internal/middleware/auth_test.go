package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authedRequest(t *testing.T, keys []string, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	handler := APIKeyAuth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	rec := authedRequest(t, []string{"k1"}, "/chat", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_BearerFormat(t *testing.T) {
	rec := authedRequest(t, []string{"k1"}, "/chat", "Bearer k1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPIKeyAuth_BareKey(t *testing.T) {
	rec := authedRequest(t, []string{"k1", "k2"}, "/chat", "k2")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPIKeyAuth_WrongKey(t *testing.T) {
	rec := authedRequest(t, []string{"k1"}, "/chat", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_HealthExempt(t *testing.T) {
	rec := authedRequest(t, []string{"k1"}, "/health", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPIKeyAuth_NoKeysConfiguredDisablesAuth(t *testing.T) {
	rec := authedRequest(t, nil, "/chat", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
