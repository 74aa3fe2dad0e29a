package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxSetAttempts bounds the optimistic retries of Set when other writers
// touch the same order key.
const maxSetAttempts = 5

var ErrContended = errors.New("order cache entry kept changing")

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

// RedisCache stores each order as JSON under order:<id>.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, id int64) (*domain.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeOrder(data)
}

// Add caches order only when no entry exists for it.
func (r *RedisCache) Add(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}
	if err := r.client.SetNX(ctx, cacheKey(order.ID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	return nil
}

// Set caches order unless the entry already holds a later lifecycle stage.
// The read and the write run in a WATCH transaction on the key.
func (r *RedisCache) Set(ctx context.Context, order *domain.Order) error {
	key := cacheKey(order.ID)
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	write := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			// An unreadable entry is replaced.
			if cached, err := decodeOrder(current); err == nil && !order.Supersedes(cached) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl())
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSetAttempts; attempt++ {
		err := r.client.Watch(ctx, write, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis set failed: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: order %d", ErrContended, order.ID)
}

func (r *RedisCache) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}

func decodeOrder(data []byte) (*domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err)
	}
	if err := order.CheckTotal(); err != nil {
		return nil, err
	}
	return &order, nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("order:%d", id)
}
