package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argobridge/argobridge/internal/config"
)

func testConfig(t *testing.T, apiKey string) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "user: test\nargo_url: http://argo.internal/chat\n"
	if apiKey != "" {
		content += "api_key: " + apiKey + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	mgr := config.NewManager(path)
	_, err := mgr.Load()
	require.NoError(t, err)
	return mgr
}

func authHandler(t *testing.T, apiKey string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mw := NewAuthMiddleware(testConfig(t, apiKey), logger)
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthOpenWithoutKey(t *testing.T) {
	handler := authHandler(t, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthWithKey(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer token", "Authorization", "Bearer secret", http.StatusOK},
		{"x-api-key", "X-API-Key", "secret", http.StatusOK},
		{"wrong token", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"missing token", "", "", http.StatusUnauthorized},
	}

	handler := authHandler(t, "secret")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthHealthBypassesKey(t *testing.T) {
	handler := authHandler(t, "secret")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
