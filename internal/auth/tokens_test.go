package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_MissingFileUsesDevToken(t *testing.T) {
	validator, err := NewValidator(filepath.Join(t.TempDir(), "absent"), false)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{DevToken: true}, validator.apiTokens)
}

func TestNewValidator_LoadsTokenFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "api-tokens")
	require.NoError(t, os.WriteFile(tokenFile, []byte("# frontend\nalpha\n\n  beta  \n"), 0o600))

	validator, err := NewValidator(tokenFile, false)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"alpha": true, "beta": true}, validator.apiTokens)
}

func TestNewValidator_EmptyTokenFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "api-tokens")
	require.NoError(t, os.WriteFile(tokenFile, []byte("\n# nothing\n"), 0o600))

	_, err := NewValidator(tokenFile, false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "contains no tokens")
}

func TestValidateAPIToken(t *testing.T) {
	validator := &Validator{
		apiTokens: map[string]bool{
			"valid-token":   true,
			"another-token": true,
		},
	}

	tests := []struct {
		name       string
		authHeader string
		apiToken   string
		expected   bool
	}{
		{name: "valid bearer token", authHeader: "Bearer valid-token", expected: true},
		{name: "valid X-API-Token", apiToken: "another-token", expected: true},
		{name: "invalid bearer token", authHeader: "Bearer invalid-token", expected: false},
		{name: "invalid X-API-Token", apiToken: "invalid-token", expected: false},
		{name: "basic auth ignored", authHeader: "Basic dXNlcjpwYXNz", expected: false},
		{name: "empty headers", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = &http.Request{Header: make(http.Header)}
			if tt.authHeader != "" {
				c.Request.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiToken != "" {
				c.Request.Header.Set("X-API-Token", tt.apiToken)
			}
			assert.Equal(t, tt.expected, validator.validateAPIToken(c))
		})
	}
}

func newRouter(v *Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(v.Middleware())
	router.GET("/tasks", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestMiddleware(t *testing.T) {
	router := newRouter(&Validator{apiTokens: map[string]bool{"secret": true}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tasks", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication required")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_Disabled(t *testing.T) {
	validator, err := NewValidator("", true)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tasks", nil)
	newRouter(validator).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
