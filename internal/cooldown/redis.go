package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard coordinates reservations across instances with SET NX PX.
type RedisGuard struct {
	client *redis.Client
}

var _ Guard = (*RedisGuard)(nil)

// NewRedisGuard creates a Redis-backed cooldown guard.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// Reserve claims the slot with SET NX and a millisecond expiry.
func (g *RedisGuard) Reserve(ctx context.Context, phone, productID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key(phone, productID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis reserve cooldown: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the reservation if it still belongs to token.
func (g *RedisGuard) Release(ctx context.Context, phone, productID, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{key(phone, productID)}, token).Err(); err != nil {
		return fmt.Errorf("redis release cooldown: %w", err)
	}
	return nil
}
