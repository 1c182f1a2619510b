package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/chatline/internal/common"
	"github.com/dmitrijs2005/chatline/internal/server/models"
)

const keyPrefix = "session:"

// RedisRepository keeps sessions in their own Redis keyspace. Expiry is
// delegated to key TTLs, so an expired session simply stops existing.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Create(ctx context.Context, token string, userID string, validity time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+token, userID, validity).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	pipe := r.client.Pipeline()
	get := pipe.Get(ctx, keyPrefix+token)
	ttl := pipe.TTL(ctx, keyPrefix+token)

	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	return &models.Session{
		Token:     token,
		UserID:    get.Val(),
		ExpiresAt: time.Now().Add(ttl.Val()),
	}, nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
