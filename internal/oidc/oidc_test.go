package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testKeyID = "test-key"

// newProvider serves discovery and JWKS documents for a single RSA key.
func newProvider(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	r.GET("/.well-known/openid-configuration", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"issuer":                                srv.URL,
			"jwks_uri":                              srv.URL + "/keys",
			"authorization_endpoint":                srv.URL + "/auth",
			"token_endpoint":                        srv.URL + "/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	r.GET("/keys", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"keys": []gin.H{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": testKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	return srv
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKeyID
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newProvider(t, key)
	ctx := context.Background()

	v, err := NewVerifier(ctx, srv.URL, "docgate")
	require.NoError(t, err)

	now := time.Now()
	good := sign(t, key, jwt.MapClaims{
		"iss":                srv.URL,
		"aud":                "docgate",
		"sub":                "u-1",
		"preferred_username": "carol",
		"iat":                now.Unix(),
		"exp":                now.Add(time.Minute).Unix(),
	})
	tok, err := v.Verify(ctx, good)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "carol", claims["preferred_username"])

	wrongAud := sign(t, key, jwt.MapClaims{
		"iss": srv.URL, "aud": "someone-else", "sub": "u-1",
		"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, wrongAud)
	require.Error(t, err)

	expired := sign(t, key, jwt.MapClaims{
		"iss": srv.URL, "aud": "docgate", "sub": "u-1",
		"iat": now.Add(-time.Hour).Unix(), "exp": now.Add(-time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, expired)
	require.Error(t, err)
}

func TestNewVerifier_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewVerifier(context.Background(), srv.URL, "docgate")
	require.ErrorContains(t, err, "failed to discover OIDC provider")
}
