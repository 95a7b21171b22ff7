package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CreationLock serializes ticket creation per requester. It is advisory: the
// partial unique index on tickets is the final guard.
type CreationLock interface {
	// Acquire returns the holder token when the lock was taken.
	Acquire(ctx context.Context, requesterID string) (token string, acquired bool, err error)
	// Release drops the lock only while it is still held under token.
	Release(ctx context.Context, requesterID, token string) error
}

// LockClient is the subset of the Redis client the lock uses.
type LockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// releaseScript deletes the key only if it still holds the caller's token, so
// a lock that expired and was retaken by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisCreationLock struct {
	client LockClient
	ttl    time.Duration
}

// NewRedisCreationLock creates a lock backed by SET NX keys that expire after ttl.
func NewRedisCreationLock(client LockClient, ttl time.Duration) CreationLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisCreationLock{client: client, ttl: ttl}
}

func (l *redisCreationLock) Acquire(ctx context.Context, requesterID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(requesterID), token, l.ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (l *redisCreationLock) Release(ctx context.Context, requesterID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{lockKey(requesterID)}, token).Err()
}

func lockKey(requesterID string) string {
	return "ticket:create:" + requesterID
}
