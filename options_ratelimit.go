package fluent

import (
	"context"

	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/ratelimiter"
)

// WithRateLimit limits page requests per client IP. The limiter is closed
// when the service stops.
func WithRateLimit(cfg ratelimiter.Config) Option {
	return func(_ context.Context, s *Service) {
		if s.limiter != nil {
			_ = s.limiter.Close()
		}

		limiter := ratelimiter.NewKeyedLimiter(cfg)
		s.limiter = limiter
		s.AddCleanupMethod(func(_ context.Context) {
			_ = limiter.Close()
		})
	}
}

func withDefaultRateLimit() Option {
	return func(ctx context.Context, s *Service) {
		if s.limiter != nil {
			return
		}

		cfg, ok := s.Config().(config.ConfigurationRateLimit)
		if !ok || cfg.RateLimit() == 0 {
			return
		}
		WithRateLimit(ratelimiter.Config{
			RequestsPerSecond: cfg.RateLimit(),
			BurstSize:         cfg.RateLimitBurstSize(),
		})(ctx, s)
	}
}
