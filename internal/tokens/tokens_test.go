package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")
	p := &collection.Principal{Username: "alice", Email: "alice@example.com"}

	tokenStr, err := GenerateAccessToken(cfg, p, 2*time.Minute)
	require.NoError(t, err)

	claims, err := NewHMACVerifier(cfg.JWT.Secret).Parse(tokenStr)
	require.NoError(t, err)
	require.Equal(t, "alice", claims["sub"])
	require.Equal(t, "alice", claims["username"])
	require.Equal(t, "alice@example.com", claims["email"])
	require.NotEmpty(t, claims["jti"])

	exp, ok := ExpiresAt(claims)
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(2*time.Minute), exp, 5*time.Second)
}

func TestGenerateAccessToken_NilPrincipalIsSystem(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	tokenStr, err := GenerateAccessToken(cfg, nil, time.Minute)
	require.NoError(t, err)

	claims, err := NewHMACVerifier(cfg.JWT.Secret).Parse(tokenStr)
	require.NoError(t, err)
	require.Equal(t, collection.SystemPrincipal, claims["username"])
	require.NotContains(t, claims, "email")
}

func TestVerify_ExposesClaimsToMiddleware(t *testing.T) {
	cfg := testConfig("verify-secret-32-bytes-xxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &collection.Principal{Username: "bob"}, time.Minute)
	require.NoError(t, err)

	tok, err := NewHMACVerifier(cfg.JWT.Secret).Verify(context.Background(), tokenStr)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "bob", claims["username"])
}

func TestParseToken_Expired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	tokenStr, err := GenerateAccessToken(cfg, &collection.Principal{Username: "x"}, -time.Minute)
	require.NoError(t, err)

	_, err = NewHMACVerifier(cfg.JWT.Secret).Parse(tokenStr)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseToken_WrongSecretFails(t *testing.T) {
	cfg := testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &collection.Principal{Username: "u3"}, 2*time.Minute)
	require.NoError(t, err)

	_, err = NewHMACVerifier("different-secret-xxxxxxxxxxxxxxxx").Parse(tokenStr)
	require.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestParseToken_Malformed(t *testing.T) {
	_, err := NewHMACVerifier("x").Parse("not.a.jwt")
	require.Error(t, err)
}

// Rejected when alg=none (unsigned token)
func TestParseToken_AlgNoneRejected(t *testing.T) {
	headerEnc := (&jwt.Token{}).EncodeSegment([]byte(`{"alg":"none"}`))
	payloadEnc := (&jwt.Token{}).EncodeSegment([]byte(`{"sub":"u-none","exp":9999999999}`))
	_, err := NewHMACVerifier("x").Parse(headerEnc + "." + payloadEnc + ".")
	require.Error(t, err)
}

func TestParseToken_MissingExpRejected(t *testing.T) {
	secret := "no-exp-secret-32-bytes-xxxxxxxxxxxx"
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "forever"}).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewHMACVerifier(secret).Parse(tok)
	require.ErrorContains(t, err, "exp claim is required")
}

// Tampering with payload must fail signature verification
func TestParseToken_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &collection.Principal{Username: "user-t"}, 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payloadBytes, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	parts[1] = (&jwt.Token{}).EncodeSegment([]byte(strings.ReplaceAll(string(payloadBytes), "user-t", "attacker")))

	_, err = NewHMACVerifier(cfg.JWT.Secret).Parse(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestRevocationList(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	r := NewRevocationList(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()
	token := "access-token-1"

	require.NoError(t, r.Revoke(ctx, token, time.Now().Add(2*time.Second)))
	ok, err := r.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, m.Exists(token), "raw tokens are never stored as keys")

	m.FastForward(3 * time.Second)
	ok, err = r.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Revoke(ctx, "already-expired", time.Now().Add(-time.Second)))
	require.Empty(t, m.Keys())
}

func TestRevocationList_NoClientNoop(t *testing.T) {
	r := NewRevocationList(nil)
	ctx := context.Background()
	require.NoError(t, r.Revoke(ctx, "t", time.Now().Add(time.Minute)))
	ok, err := r.IsRevoked(ctx, "t")
	require.NoError(t, err)
	require.False(t, ok)
}
