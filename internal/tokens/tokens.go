package tokens

import (
	"time"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GenerateAccessToken creates a signed HS256 access token for the principal.
func GenerateAccessToken(cfg *config.Config, p *collection.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      p.Name(),
		"username": p.Name(),
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	if p != nil && p.Email != "" {
		claims["email"] = p.Email
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}
