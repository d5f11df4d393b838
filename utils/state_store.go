package utils

import (
	"context"
	"sync"
	"time"
)

// One-time OAuth state store. Redis keeps states valid across restarts
// and instances; the in-process fallback covers dev setups without redis.

const (
	stateKeyPrefix = "checkin:oauth:state:"
	stateTTL       = 10 * time.Minute
)

var (
	localStates   = make(map[string]time.Time)
	localStatesMu sync.Mutex
)

// SaveOAuthState stores a state value for later one-time consumption.
func SaveOAuthState(state string) {
	if state == "" {
		return
	}
	if rdb := GetRedis(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Set(ctx, stateKeyPrefix+state, "1", stateTTL).Err(); err == nil {
			return
		}
	}
	localStatesMu.Lock()
	defer localStatesMu.Unlock()
	localStates[state] = time.Now().Add(stateTTL)
}

// ConsumeOAuthState validates and deletes a state. Returns false for
// unknown, expired or replayed states.
func ConsumeOAuthState(state string) bool {
	if state == "" {
		return false
	}
	if rdb := GetRedis(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rdb.Del(ctx, stateKeyPrefix+state).Result()
		if err == nil {
			return n > 0
		}
	}
	localStatesMu.Lock()
	defer localStatesMu.Unlock()
	exp, ok := localStates[state]
	if !ok {
		return false
	}
	delete(localStates, state)
	return exp.After(time.Now())
}
