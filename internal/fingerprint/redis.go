package fingerprint

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore implements the fingerprint store on Redis, for deployments where
// multiple monitor processes must share one dedup window. Expiry is delegated
// to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore constructs a Redis-backed store and verifies connectivity.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rosterwatch:fp:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Seen reports whether the hash exists. Redis errors are treated as unseen so
// a dedup outage degrades to re-processing rather than dropping content.
func (s *RedisStore) Seen(ctx context.Context, hash string) bool {
	n, err := s.client.Exists(ctx, s.prefix+hash).Result()
	if err != nil {
		s.logger.Warn("fingerprint exists check failed", zap.Error(err))
		return false
	}
	return n > 0
}

// Record stores the hash with the configured TTL.
func (s *RedisStore) Record(ctx context.Context, hash string) {
	if err := s.client.SetNX(ctx, s.prefix+hash, 1, s.ttl).Err(); err != nil {
		s.logger.Warn("fingerprint record failed", zap.Error(err))
	}
}

// Sweep is a no-op; Redis expires keys itself.
func (s *RedisStore) Sweep(context.Context) int {
	return 0
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
