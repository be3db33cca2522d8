package fluent

import (
	"context"

	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/telemetry"
)

// WithTelemetry sets up OpenTelemetry for the service. Providers are flushed
// when the service stops.
func WithTelemetry(opts ...telemetry.Option) Option {
	return func(ctx context.Context, s *Service) {
		cfg, _ := s.Config().(config.ConfigurationTelemetry)

		opts = append([]telemetry.Option{
			telemetry.WithServiceName(s.Name()),
			telemetry.WithServiceVersion(s.Version()),
		}, opts...)

		manager := telemetry.NewManager(ctx, cfg, opts...)
		if err := manager.Init(ctx); err != nil {
			s.Log(ctx).WithError(err).Error("could not initialise telemetry")
			return
		}

		s.telemetry = manager
		s.AddCleanupMethod(func(ctx context.Context) {
			if err := manager.Shutdown(ctx); err != nil {
				s.Log(ctx).WithError(err).Warn("could not flush telemetry")
			}
		})
	}
}

func withDefaultTelemetry() Option {
	return func(ctx context.Context, s *Service) {
		if s.telemetry == nil {
			WithTelemetry()(ctx, s)
		}
	}
}

// TelemetryManager returns the telemetry set up for the service, nil when
// initialisation failed.
func (s *Service) TelemetryManager() telemetry.Manager {
	return s.telemetry
}
