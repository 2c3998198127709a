package news

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

const cacheKeyPrefix = "news:headlines:"

// Cache keeps recently collected per-ticker headlines in Redis so
// repeated analysis requests within the TTL do not re-hit the upstream
// sources. Cache failures are never fatal: a miss is returned instead.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates new Redis-backed headline cache
func NewCache(cfg *config.RedisConfig, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("news cache initialized",
		zap.String("address", cfg.Addr()),
		zap.Duration("ttl", ttl),
	)

	return &Cache{client: client, ttl: ttl}, nil
}

// Get returns cached headlines for the ticker, if present
func (c *Cache) Get(ctx context.Context, ticker string) ([]models.Headline, bool) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+ticker).Bytes()
	if err != nil {
		return nil, false
	}

	var headlines []models.Headline
	if err := json.Unmarshal(data, &headlines); err != nil {
		logger.Warn("failed to decode cached headlines",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
		return nil, false
	}

	return headlines, true
}

// Set stores headlines for the ticker with the configured TTL
func (c *Cache) Set(ctx context.Context, ticker string, headlines []models.Headline) {
	data, err := json.Marshal(headlines)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+ticker, data, c.ttl).Err(); err != nil {
		logger.Warn("failed to cache headlines",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
	}
}

// Close closes the underlying Redis client
func (c *Cache) Close() error {
	return c.client.Close()
}
