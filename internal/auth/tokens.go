// Package auth guards the HTTP API with static API tokens.
package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rossigee/todostore/pkg/types"
	"github.com/sirupsen/logrus"
)

// DevToken is accepted when no token file exists
const DevToken = "dev-token-12345"

// Validator handles authentication validation
type Validator struct {
	apiTokens map[string]bool
	disabled  bool
}

// NewValidator loads API tokens from tokenFile, one per line. A missing file
// falls back to DevToken. When disabled, every request is let through.
func NewValidator(tokenFile string, disabled bool) (*Validator, error) {
	v := &Validator{
		apiTokens: make(map[string]bool),
		disabled:  disabled,
	}
	if disabled {
		logrus.Warn("API authentication disabled")
		return v, nil
	}

	if err := v.loadAPITokens(tokenFile); err != nil {
		return nil, fmt.Errorf("failed to load API tokens: %w", err)
	}
	return v, nil
}

func (v *Validator) loadAPITokens(tokenFile string) error {
	if _, err := os.Stat(tokenFile); tokenFile == "" || os.IsNotExist(err) {
		logrus.WithField("tokens_file", tokenFile).Warn("API token file not found, accepting development token")
		v.apiTokens[DevToken] = true
		return nil
	}

	content, err := os.ReadFile(tokenFile)
	if err != nil {
		return fmt.Errorf("failed to read API tokens: %w", err)
	}

	for _, line := range strings.Split(string(content), "\n") {
		token := strings.TrimSpace(line)
		if token == "" || strings.HasPrefix(token, "#") {
			continue
		}
		v.apiTokens[token] = true
	}

	if len(v.apiTokens) == 0 {
		return fmt.Errorf("token file %s contains no tokens", tokenFile)
	}
	return nil
}

// Middleware returns Gin middleware for authentication
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v.disabled || v.validateAPIToken(c) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
			Error:   "authentication required",
			Message: "provide a valid API token",
			Code:    http.StatusUnauthorized,
		})
	}
}

// validateAPIToken checks the Authorization bearer token, then X-API-Token
func (v *Validator) validateAPIToken(c *gin.Context) bool {
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && token != "" {
		return v.apiTokens[token]
	}

	if token := c.GetHeader("X-API-Token"); token != "" {
		return v.apiTokens[token]
	}

	return false
}
