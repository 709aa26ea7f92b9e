package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrVaultLocked is returned when another replica holds the vault lock past
// the acquisition window.
var ErrVaultLocked = errors.New("vault is locked by another operation")

// RedisVaultLock serializes mutating vault operations across service
// replicas with a SETNX advisory lock. The database row lock remains the
// correctness backstop; this only narrows lock-wait pileups under load.
type RedisVaultLock struct {
	client *redis.Client
}

func NewRedisVaultLock(client *redis.Client) *RedisVaultLock {
	return &RedisVaultLock{client: client}
}

// releaseScript deletes the lock key only if this holder still owns it, so a
// slow operation whose TTL lapsed cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisVaultLock) Acquire(ctx context.Context, vaultID string, ttl time.Duration) (func(), error) {
	key := "escrow:vault_lock:" + vaultID
	token := uuid.NewString()

	deadline := time.Now().Add(ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrVaultLocked
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
