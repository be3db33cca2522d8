package fluent

import (
	"context"

	"github.com/pitabwire/fluent/config"
)

// WithConfig Option that helps to specify or override the configuration object of our service.
func WithConfig(cfg any) Option {
	return func(ctx context.Context, s *Service) {
		s.configuration = cfg

		if serviceCfg, ok := cfg.(config.ConfigurationService); ok {
			if serviceCfg.Name() != "" {
				WithName(serviceCfg.Name())(ctx, s)
			}

			if serviceCfg.Version() != "" {
				WithVersion(serviceCfg.Version())(ctx, s)
			}
		}

		WithLogger()(ctx, s)
	}
}

func (s *Service) Config() any {
	return s.configuration
}
