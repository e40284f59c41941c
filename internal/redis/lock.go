package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// pendingPrefix marks a lock whose submission is still in flight. Each
// attempt stores its own token, and on success the value becomes the order id.
const pendingPrefix = "pending:"

// ErrLockLost is returned when the lock no longer holds the caller's token,
// usually because the TTL expired and another submission took the key.
var ErrLockLost = errors.New("order lock no longer held")

// completeScript swaps the caller's token for the order id, keeping the TTL.
var completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3]) and 1 or 0
end
return 0
`)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{Client: client, ttl: ttl}
}

func lockKey(key string) string {
	return fmt.Sprintf("order_lock:%s", key)
}

func newToken() string {
	return pendingPrefix + uuid.NewString()
}

func isPending(val string) bool {
	return strings.HasPrefix(val, pendingPrefix)
}

// Acquire takes the idempotency lock for key and returns the token that owns
// it. ok is false if another submission already holds the key.
func (r *Redis) Acquire(ctx context.Context, key string) (token string, ok bool, err error) {
	token = newToken()
	ok, err = r.Client.SetNX(ctx, lockKey(key), token, r.ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Complete records orderID against the lock so the key stays taken for the
// rest of its TTL.
func (r *Redis) Complete(ctx context.Context, key, token, orderID string) error {
	n, err := completeScript.Run(ctx, r.Client, []string{lockKey(key)}, token, orderID, r.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// Release drops the lock after a failed attempt so the client may retry. A
// lock taken over by another submission, or already naming an order, stays.
func (r *Redis) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, r.Client, []string{lockKey(key)}, token).Err()
}

// OrderFor returns the order id stored under key, or "" if the key is free or
// still pending.
func (r *Redis) OrderFor(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, lockKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if isPending(val) {
		return "", nil
	}
	return val, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
