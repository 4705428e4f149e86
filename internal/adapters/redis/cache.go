// Package redis provides a Redis-backed similarity cache built on rueidis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/rueidis"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/core/ports"
)

const keyPrefix = "recs:similar:"

var _ ports.SimilarityCache = (*Cache)(nil)

// Config holds connection parameters for the Redis cache.
type Config struct {
	Addrs    []string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores lookup results as JSON strings keyed by folded artist name.
// Expiry is delegated to Redis.
type Cache struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewCache connects to Redis via rueidis.
func NewCache(cfg Config) (*Cache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis adapter: addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis adapter: create client: %w", err)
	}

	return newCache(client, cfg.TTL), nil
}

func newCache(client rueidis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis adapter: ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (c *Cache) Close() {
	c.client.Close()
}

// Get returns the cached lookup for artistName, matched case-insensitively.
func (c *Cache) Get(ctx context.Context, artistName string) ([]domain.SimilarArtist, bool, error) {
	key := cacheKey(artistName)
	if key == "" {
		return nil, false, nil
	}

	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis adapter: get %s: %w", key, err)
	}

	var similar []domain.SimilarArtist
	if err := json.Unmarshal(data, &similar); err != nil {
		return nil, false, fmt.Errorf("redis adapter: decode %s: %w", key, err)
	}
	return similar, true, nil
}

// Set stores the lookup result, expiring after the configured ttl when one is set.
func (c *Cache) Set(ctx context.Context, artistName string, similar []domain.SimilarArtist) error {
	key := cacheKey(artistName)
	if key == "" {
		return nil
	}
	if similar == nil {
		similar = []domain.SimilarArtist{}
	}

	payload, err := json.Marshal(similar)
	if err != nil {
		return fmt.Errorf("redis adapter: encode %s: %w", key, err)
	}

	var cmd rueidis.Completed
	if c.ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(rueidis.BinaryString(payload)).Ex(c.ttl).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(rueidis.BinaryString(payload)).Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis adapter: set %s: %w", key, err)
	}
	return nil
}

func cacheKey(artistName string) string {
	name := domain.NameKey(artistName)
	if name == "" {
		return ""
	}
	return keyPrefix + name
}
