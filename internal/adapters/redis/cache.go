package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// AcquireRoomLock serializes booking attempts for one room. The TTL is a
// crash expiry only; the caller releases the lock after its transaction.
func (c *Cache) AcquireRoomLock(ctx context.Context, roomID string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, "roomlock:"+roomID, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseRoomLock(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, "roomlock:"+roomID).Err()
}
