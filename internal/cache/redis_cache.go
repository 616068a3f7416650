package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
)

const defaultKeyPrefix = "autobill:suggest"

// RedisSuggestionCache versions every key with a generation counter. An
// INCR on the counter invalidates all entries at once; the orphaned keys
// expire through their TTL.
type RedisSuggestionCache struct {
	client *redis.Client
	prefix string
}

func NewRedisSuggestionCache(addr string, password string, db int) *RedisSuggestionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSuggestionCache{client: client, prefix: defaultKeyPrefix}
}

func (c *RedisSuggestionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSuggestionCache) Close() error {
	return c.client.Close()
}

func (c *RedisSuggestionCache) Get(ctx context.Context, query string, limit int) (Lookup, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return Lookup{}, err
	}

	val, err := c.client.Get(ctx, entryKey(c.prefix, gen, query, limit)).Result()
	if errors.Is(err, redis.Nil) {
		return Lookup{Generation: gen}, nil
	}
	if err != nil {
		return Lookup{}, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return Lookup{}, err
	}
	return Lookup{Products: products, Hit: true, Generation: gen}, nil
}

// Set stores products under generation, normally the one returned by the Get
// that missed. Entries under a superseded generation are never read again and
// expire with ttl.
func (c *RedisSuggestionCache) Set(ctx context.Context, generation int64, query string, limit int, products []domain.Product, ttl time.Duration) error {
	if products == nil {
		products = []domain.Product{}
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, entryKey(c.prefix, generation, query, limit), payload, ttl).Err()
}

func (c *RedisSuggestionCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey(c.prefix)).Err()
}

func (c *RedisSuggestionCache) generation(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, generationKey(c.prefix)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache: bad generation %q: %w", raw, err)
	}
	return gen, nil
}

func generationKey(prefix string) string {
	return prefix + ":gen"
}

func entryKey(prefix string, gen int64, query string, limit int) string {
	return fmt.Sprintf("%s:%d:%d:%s", prefix, gen, store.NormalizeLimit(limit), store.SearchTerm(query))
}
