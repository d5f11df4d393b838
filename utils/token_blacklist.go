package utils

import (
	"context"
	"sync"
	"time"
)

// Token blacklist for logout. Uses redis when reachable so revocation
// survives restarts and is shared across instances, otherwise falls
// back to an in-process map with lazy expiry.

const blacklistKeyPrefix = "checkin:token:blacklist:"

var (
	localBlacklist   = make(map[string]time.Time)
	localBlacklistMu sync.Mutex
)

// BlacklistToken marks a token as revoked until its natural expiry.
func BlacklistToken(token string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if rdb := GetRedis(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	localBlacklistMu.Lock()
	defer localBlacklistMu.Unlock()
	localBlacklist[token] = time.Now().Add(ttl)
	// opportunistic sweep
	if len(localBlacklist) > 1024 {
		now := time.Now()
		for t, exp := range localBlacklist {
			if exp.Before(now) {
				delete(localBlacklist, t)
			}
		}
	}
}

// IsTokenBlacklisted reports whether a token has been revoked.
func IsTokenBlacklisted(token string) bool {
	if rdb := GetRedis(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rdb.Exists(ctx, blacklistKeyPrefix+token).Result()
		if err == nil {
			return n > 0
		}
	}
	localBlacklistMu.Lock()
	defer localBlacklistMu.Unlock()
	exp, ok := localBlacklist[token]
	if !ok {
		return false
	}
	if exp.Before(time.Now()) {
		delete(localBlacklist, token)
		return false
	}
	return true
}
