package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	ClaimsKey = "claims"
	TokenKey  = "token"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// RevocationChecker reports whether a bearer token was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, raw string) (bool, error)
}

// Chain tries each verifier in order and accepts the first success, so
// locally issued tokens and identity-provider tokens can be mixed.
func Chain(verifiers ...Verifier) Verifier {
	return chain(verifiers)
}

type chain []Verifier

func (vs chain) Verify(ctx context.Context, raw string) (Token, error) {
	errs := make([]error, 0, len(vs))
	for _, v := range vs {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// AuthMiddleware returns a Gin middleware that requires a valid Bearer token.
// revoked may be nil.
func AuthMiddleware(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	return authenticate(ver, revoked, true)
}

// OptionalAuthMiddleware authenticates a Bearer token when one is sent and
// lets anonymous requests through. A token that is sent must still be valid.
func OptionalAuthMiddleware(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	return authenticate(ver, revoked, false)
}

func authenticate(ver Verifier, revoked RevocationChecker, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			if required {
				abort(c, http.StatusUnauthorized, "missing Authorization header")
				return
			}
			c.Next()
			return
		}
		scheme, token, ok := strings.Cut(auth, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abort(c, http.StatusUnauthorized, "invalid Authorization header")
			return
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if revoked != nil {
			gone, err := revoked.IsRevoked(c.Request.Context(), token)
			if err != nil {
				abort(c, http.StatusServiceUnavailable, "token revocation check failed")
				return
			}
			if gone {
				abort(c, http.StatusUnauthorized, "token has been revoked")
				return
			}
		}

		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			abort(c, http.StatusUnauthorized, "failed to parse claims")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// Identity returns the caller's username and email from verified claims.
// The username is the first of username, preferred_username and sub.
func Identity(c *gin.Context) (username, email string, ok bool) {
	v, found := c.Get(ClaimsKey)
	if !found {
		return "", "", false
	}
	claims, isMap := v.(map[string]interface{})
	if !isMap {
		return "", "", false
	}
	for _, k := range []string{"username", "preferred_username", "sub"} {
		if s, _ := claims[k].(string); s != "" {
			username = s
			break
		}
	}
	email, _ = claims["email"].(string)
	return username, email, username != ""
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}
