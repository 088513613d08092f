package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "docgate:revoked:"

// RevocationList remembers logged-out access tokens in Redis until they
// expire on their own. A nil client disables revocation.
type RevocationList struct {
	client *redis.Client
}

func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client}
}

func revokedKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return revokedPrefix + hex.EncodeToString(sum[:])
}

// Revoke marks raw as revoked until the given expiry. Tokens that already
// expired are not stored.
func (r *RevocationList) Revoke(ctx context.Context, raw string, until time.Time) error {
	if r == nil || r.client == nil {
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKey(raw), "1", ttl).Err()
}

func (r *RevocationList) IsRevoked(ctx context.Context, raw string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKey(raw)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Enabled reports whether revocations are persisted.
func (r *RevocationList) Enabled() bool {
	return r != nil && r.client != nil
}
