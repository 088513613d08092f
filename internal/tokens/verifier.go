package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docgate/docgate/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// claimsToken exposes verified JWT claims to the auth middleware.
type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// HMACVerifier verifies tokens issued by GenerateAccessToken.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := v.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &claimsToken{claims: claims}, nil
}

// Parse validates signature, algorithm and expiry and returns the claims.
func (v *HMACVerifier) Parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if _, ok := ExpiresAt(claims); !ok {
		return nil, errors.New("verify token: exp claim is required")
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of an already verified token.
func ExpiresAt(claims jwt.MapClaims) (time.Time, bool) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
