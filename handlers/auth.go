package handlers

import (
	"net/http"
	"time"

	"github.com/docgate/docgate/internal/tokens"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler serves the token endpoints under /auth. Tokens are issued
// out of band (docgate token, or an OIDC provider); the API only revokes them.
type AuthHandler struct {
	revocations *tokens.RevocationList
	// used when a verified token carries no exp claim
	fallbackTTL time.Duration
}

func NewAuthHandler(r *tokens.RevocationList, fallbackTTL time.Duration) *AuthHandler {
	return &AuthHandler{revocations: r, fallbackTTL: fallbackTTL}
}

// Register routes under /auth. The group must already run the auth middleware.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/logout", h.Logout)
}

// Logout revokes the presented bearer token until it would have expired.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw := c.GetString(middleware.TokenKey)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
		return
	}

	until := time.Now().Add(h.fallbackTTL)
	if v, ok := c.Get(middleware.ClaimsKey); ok {
		if claims, ok := v.(map[string]interface{}); ok {
			if exp, ok := tokens.ExpiresAt(jwt.MapClaims(claims)); ok {
				until = exp
			}
		}
	}

	if err := h.revocations.Revoke(c.Request.Context(), raw, until); err != nil {
		logger.Errorf("revoke token: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "logged out", "revoked": h.revocations.Enabled()})
}
