package cache

import (
	"context"
	"time"

	"github.com/erp/invoicer/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DocumentCache is the union of the two backends.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// FactoryOption is a functional option for NewDocumentCache
type FactoryOption func(*factory)

type factory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(context.Context, RedisConfig) (DocumentCache, error)
}

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) { f.allowInMemoryFallback = allow }
}

// NewDocumentCache builds the cache for cfg. It returns nil, nil when
// caching is disabled (cache_ttl = 0).
func NewDocumentCache(ctx context.Context, cfg *config.Config, opts ...FactoryOption) (DocumentCache, error) {
	f := &factory{
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect:               connectRedis,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f.create(ctx, cfg)
}

func (f *factory) create(ctx context.Context, cfg *config.Config) (DocumentCache, error) {
	if cfg.Invoice.CacheTTL <= 0 {
		f.logger.Info("Invoice document cache disabled")
		return nil, nil
	}

	redisCfg := RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	c, err := f.connect(ctx, redisCfg)
	if err == nil {
		f.logger.Info("Using Redis invoice document cache", zap.String("addr", redisCfg.Addr))
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory invoice document cache",
		zap.String("addr", redisCfg.Addr),
		zap.Error(err),
	)
	return NewInMemoryDocumentCache(0), nil
}

func connectRedis(ctx context.Context, cfg RedisConfig) (DocumentCache, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisDocumentCache(client, DefaultKeyPrefix), nil
}
