package fluent

import (
	"context"
	"fmt"
	"time"

	"github.com/pitabwire/fluent/cache"
	"github.com/pitabwire/fluent/cache/redis"
	"github.com/pitabwire/fluent/cache/valkey"
	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/data"
)

// ResourceCacheName is the cache fronting the resource store.
const ResourceCacheName = "l10n-resources"

// WithCacheManager adds a cache manager to the service.
func WithCacheManager() Option {
	return func(_ context.Context, s *Service) {
		if s.cacheManager == nil {
			s.cacheManager = cache.NewManager()

			s.AddCleanupMethod(func(_ context.Context) {
				if s.cacheManager != nil {
					_ = s.cacheManager.Close()
				}
			})
		}
	}
}

// WithCache adds a raw cache with the given name to the service.
func WithCache(name string, rawCache cache.RawCache) Option {
	return func(ctx context.Context, s *Service) {
		if s.cacheManager == nil {
			WithCacheManager()(ctx, s)
		}

		s.cacheManager.AddCache(name, rawCache)
	}
}

// WithInMemoryCache adds an in-memory cache with the given name.
func WithInMemoryCache(name string) Option {
	return WithCache(name, cache.NewInMemoryCache(cache.WithName(name)))
}

// WithCacheURI connects the named cache to the backend at uri: mem://,
// redis://, rediss:// or valkey://. Connection failures are logged and
// leave the service without that cache.
func WithCacheURI(name, uri string) Option {
	return func(ctx context.Context, s *Service) {
		rawCache, err := openCache(ctx, name, data.DSN(uri), cacheMaxAge(s))
		if err != nil {
			s.Log(ctx).WithError(err).WithField("cache", name).Error("could not open cache")
			return
		}
		WithCache(name, rawCache)(ctx, s)
	}
}

func cacheMaxAge(s *Service) time.Duration {
	if cfg, ok := s.Config().(config.ConfigurationCache); ok {
		return cfg.CacheMaxAge()
	}
	return config.DefaultCacheMaxAge
}

func openCache(ctx context.Context, name string, dsn data.DSN, maxAge time.Duration) (cache.RawCache, error) {
	opts := []cache.Option{cache.WithDSN(dsn), cache.WithName(name), cache.WithMaxAge(maxAge)}

	switch {
	case dsn.IsMem():
		return cache.NewInMemoryCache(opts...), nil
	case dsn.IsRedis():
		c, err := redis.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case dsn.IsValkey():
		c, err := valkey.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("fluent: unsupported cache uri %q", dsn.String())
	}
}

// CacheManager returns the service's cache manager.
func (s *Service) CacheManager() cache.Manager {
	return s.cacheManager
}

// GetRawCache is a convenience method to get a raw cache by name from the service.
func (s *Service) GetRawCache(name string) (cache.RawCache, bool) {
	if s.cacheManager == nil {
		return nil, false
	}
	return s.cacheManager.GetRawCache(name)
}
