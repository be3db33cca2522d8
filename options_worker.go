package fluent

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/resource"
	"github.com/pitabwire/fluent/workerpool"
)

// WithWorkerPool creates the pool used for background batches such as
// Preload. Without explicit options the pool follows the worker pool
// configuration.
func WithWorkerPool(opts ...workerpool.Option) Option {
	return func(ctx context.Context, s *Service) {
		if cfg, ok := s.Config().(config.ConfigurationWorkerPool); ok && len(opts) == 0 {
			opts = workerpool.OptionsFromConfig(cfg)
		}
		opts = append(opts, workerpool.WithPoolLogger(s.Log(ctx)))

		pool, err := workerpool.New(ctx, opts...)
		if err != nil {
			s.Log(ctx).WithError(err).Error("could not create worker pool")
			return
		}

		if s.pool != nil {
			s.pool.Shutdown()
		}
		s.pool = pool
		s.AddCleanupMethod(func(_ context.Context) {
			pool.Shutdown()
		})
	}
}

func (s *Service) WorkerPool() workerpool.WorkerPool {
	return s.pool
}

// Preload loads every configured resource for every available locale
// through the service loader, filling the resource cache. Missing resources
// are not an error.
func (s *Service) Preload(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Preload")
	defer func() { tracer.End(ctx, span, err) }()

	if s.loader == nil {
		return ErrNoResourceStore
	}
	if s.pool == nil {
		WithWorkerPool()(ctx, s)
		if s.pool == nil {
			return errors.New("fluent: no worker pool available")
		}
	}

	cfg, ok := s.Config().(config.ConfigurationLocalization)
	if !ok {
		return nil
	}

	var tasks []func(context.Context) error
	for _, locale := range cfg.AvailableLocales() {
		for _, id := range s.ResourceIDs() {
			tasks = append(tasks, func(ctx context.Context) error {
				_, err := s.loader.Load(ctx, locale, id)
				if err != nil && !errors.Is(err, resource.ErrResourceNotFound) {
					return fmt.Errorf("preload %s: %w", path.Join(locale, id), err)
				}
				return nil
			})
		}
	}

	s.Log(ctx).WithField("resources", len(tasks)).Debug("preloading resources")
	return workerpool.RunAll(ctx, s.pool, tasks...)
}
