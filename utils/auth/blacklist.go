package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/squadran/squadran-api/utils/cache"
)

// BlacklistService handles JWT token revocation. Revoked JTIs live in Redis
// with a TTL matching the token's remaining lifetime, so the set cleans
// itself up. With no Redis configured revocation is a no-op and logout falls
// back to client-side token disposal.
type BlacklistService struct {
	redisCache *cache.RedisCache
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(redisCache *cache.RedisCache) *BlacklistService {
	return &BlacklistService{redisCache: redisCache}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:jti:%s", jti)
}

// RevokeToken adds a token to the blacklist until it expires on its own.
func (s *BlacklistService) RevokeToken(ctx context.Context, jti string, expiresAt time.Time, reason string) error {
	if s.redisCache == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already expired
	}
	return s.redisCache.Set(ctx, blacklistKey(jti), reason, ttl)
}

// IsTokenRevoked checks if a token is in the blacklist
func (s *BlacklistService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redisCache == nil {
		return false, nil
	}
	return s.redisCache.Exists(ctx, blacklistKey(jti))
}
