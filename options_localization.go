package fluent

import (
	"context"
	"strings"

	"github.com/pitabwire/fluent/client"
	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/dom"
	"github.com/pitabwire/fluent/localization"
	"github.com/pitabwire/fluent/resource"
)

// WithResourceStore sets the store resources are loaded from. The store is
// closed when the service stops.
func WithResourceStore(store *resource.Store) Option {
	return func(_ context.Context, s *Service) {
		s.store = store
		s.origin = store
		s.loader = nil
		s.AddCleanupMethod(func(_ context.Context) {
			_ = store.Close()
		})
	}
}

// WithResourceStoreURL opens the blob bucket at url, e.g. file:///srv/l10n,
// as the resource store. http and https urls are fetched remotely instead.
func WithResourceStoreURL(url string) Option {
	return func(ctx context.Context, s *Service) {
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			withRemoteResources(url)(ctx, s)
			return
		}

		store, err := resource.OpenStore(ctx, url)
		if err != nil {
			s.Log(ctx).WithError(err).WithField("url", url).Error("could not open resource store")
			return
		}
		WithResourceStore(store)(ctx, s)
	}
}

func withRemoteResources(url string) Option {
	return func(ctx context.Context, s *Service) {
		var opts []client.HTTPOption
		if cfg, ok := s.Config().(config.ConfigurationLogLevel); ok && cfg.LoggingLevelIsDebug() {
			opts = append(opts, client.WithHTTPTraceRequests())
		}

		loader, err := resource.NewHTTPLoader(url, client.NewInvoker(opts...))
		if err != nil {
			s.Log(ctx).WithError(err).WithField("url", url).Error("could not set up remote resources")
			return
		}
		s.store = nil
		s.origin = loader
		s.loader = nil
	}
}

// WithResourceLoader bypasses the store and cache and loads resources
// through loader.
func WithResourceLoader(loader resource.Loader) Option {
	return func(_ context.Context, s *Service) {
		s.loader = loader
	}
}

// withDefaultLocalization fills in the store and cache from configuration
// when no option provided them, then assembles the loader.
func withDefaultLocalization() Option {
	return func(ctx context.Context, s *Service) {
		if s.loader != nil {
			return
		}

		if s.origin == nil {
			if cfg, ok := s.Config().(config.ConfigurationLocalization); ok && cfg.ResourcesURL() != "" {
				WithResourceStoreURL(cfg.ResourcesURL())(ctx, s)
			}
		}
		if s.origin == nil {
			return
		}

		if _, ok := s.GetRawCache(ResourceCacheName); !ok {
			if cfg, cok := s.Config().(config.ConfigurationCache); cok && cfg.CacheURL() != "" {
				WithCacheURI(ResourceCacheName, cfg.CacheURL())(ctx, s)
			}
		}

		s.loader = s.origin
		if raw, ok := s.GetRawCache(ResourceCacheName); ok {
			s.loader = resource.NewCachedStore(s.origin, raw, cacheMaxAge(s))
		}
	}
}

// ResourceStore returns the configured store, nil when resources come from
// a custom loader, a remote url or no store could be opened.
func (s *Service) ResourceStore() *resource.Store {
	return s.store
}

func (s *Service) ResourceLoader() resource.Loader {
	return s.loader
}

// Locales negotiates the configured locales against requested, most
// preferred first, ending with the default locale.
func (s *Service) Locales(requested []string) []string {
	cfg, ok := s.Config().(config.ConfigurationLocalization)
	if !ok {
		return requested
	}
	return localization.Negotiate(requested, cfg.AvailableLocales(), cfg.DefaultLocale())
}

// ResourceIDs are the resources every localizer starts with.
func (s *Service) ResourceIDs() []string {
	if cfg, ok := s.Config().(config.ConfigurationLocalization); ok {
		return cfg.ResourceIDs()
	}
	return nil
}

// Localizer builds a DOM localizer for the language preferences carried by
// ctx. Localizers are cheap; resource loads are shared through the cache.
func (s *Service) Localizer(ctx context.Context) (*dom.Localization, error) {
	if s.loader == nil {
		return nil, ErrNoResourceStore
	}

	locales := s.Locales(localization.FromContext(ctx))
	return dom.New(s.ResourceIDs(), localization.BundleGenerator(s.loader, locales)), nil
}

// Format formats a single message for the language preferences in ctx.
func (s *Service) Format(ctx context.Context, id string, args map[string]any) (out string, err error) {
	ctx, span := tracer.Start(ctx, "Format")
	defer func() { tracer.End(ctx, span, err) }()

	l, err := s.Localizer(ctx)
	if err != nil {
		return id, err
	}
	return l.FormatValue(ctx, id, args)
}
