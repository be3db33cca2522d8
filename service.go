// Package fluent assembles the localization stack into a service: a
// resource store, an optional cache in front of it, and per-request DOM
// localizers negotiated from the caller's language preferences.
package fluent

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pitabwire/util"

	"github.com/pitabwire/fluent/cache"
	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/ratelimiter"
	"github.com/pitabwire/fluent/resource"
	"github.com/pitabwire/fluent/telemetry"
	"github.com/pitabwire/fluent/version"
	"github.com/pitabwire/fluent/workerpool"
)

type contextKey string

func (c contextKey) String() string {
	return "fluent/" + string(c)
}

const ctxKeyService = contextKey("serviceKey")

//nolint:gochecknoglobals // tracer is shared by every service method
var tracer = telemetry.NewTracer("fluent")

// ErrNoResourceStore is returned when localization is needed but no
// resource store was configured.
var ErrNoResourceStore = errors.New("fluent: no resource store configured")

// Service holds the application components for its lifetime. It is pushed
// into and pulled from contexts to make it easy to pass around.
type Service struct {
	name          string
	version       string
	logger        *util.LogEntry
	configuration any
	cacheManager  cache.Manager
	store         *resource.Store
	origin        resource.Loader
	loader        resource.Loader
	pool          workerpool.WorkerPool
	limiter       *ratelimiter.KeyedLimiter
	telemetry     telemetry.Manager
	updates       *resourceUpdates
	cancelFunc    context.CancelFunc
	cleanup       func(ctx context.Context)
	stopMutex     sync.Mutex
}

type Option func(ctx context.Context, service *Service)

// NewService creates a new instance of Service with the name and supplied options.
// Internally it calls NewServiceWithContext and creates a background context for use.
func NewService(name string, opts ...Option) (context.Context, *Service) {
	return NewServiceWithContext(context.Background(), name, opts...)
}

// NewServiceWithContext creates a new instance of Service with context, name and supplied options.
// Configuration is read from the environment unless WithConfig is given.
func NewServiceWithContext(ctx context.Context, name string, opts ...Option) (context.Context, *Service) {
	ctx, signalCancelFunc := signal.NotifyContext(ctx,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	defaultLogger := util.Log(ctx)
	ctx = util.ContextWithLogger(ctx, defaultLogger)

	service := &Service{
		name:       name,
		version:    version.Version,
		cancelFunc: signalCancelFunc,
		logger:     defaultLogger,
	}

	defaultCfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		defaultLogger.WithError(err).Warn("could not read configuration from environment")
	}

	opts = append([]Option{WithConfig(&defaultCfg)}, opts...)
	if name != "" {
		opts = append(opts, WithName(name))
	}
	opts = append(opts, withDefaultTelemetry(), withDefaultLocalization(), withDefaultRateLimit(), withDefaultResourceUpdates())

	service.Init(ctx, opts...)

	ctx = ToContext(ctx, service)
	ctx = config.ToContext(ctx, service.Config())
	ctx = util.ContextWithLogger(ctx, service.logger)
	return ctx, service
}

// ToContext pushes a service instance into the supplied context for easier propagation.
func ToContext(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// FromContext obtains a service instance being propagated through the context.
func FromContext(ctx context.Context) *Service {
	service, ok := ctx.Value(ctxKeyService).(*Service)
	if !ok {
		return nil
	}

	return service
}

// Name gets the name of the service. Its the first argument used when NewService is called.
func (s *Service) Name() string {
	return s.name
}

// WithName specifies the name the service will utilize.
func WithName(name string) Option {
	return func(_ context.Context, s *Service) {
		s.name = name
	}
}

// Version gets the release version of the service.
func (s *Service) Version() string {
	return s.version
}

// WithVersion specifies the version the service will utilize.
func WithVersion(version string) Option {
	return func(_ context.Context, s *Service) {
		s.version = version
	}
}

// Init evaluates the options provided as arguments and supplies them to the service object.
func (s *Service) Init(ctx context.Context, opts ...Option) {
	for _, opt := range opts {
		opt(ctx, s)
	}
}

// AddCleanupMethod Adds user defined functions to be run just before completely stopping the service.
// These are responsible for properly and gracefully stopping active components.
func (s *Service) AddCleanupMethod(f func(ctx context.Context)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.cleanup == nil {
		s.cleanup = f
		return
	}

	old := s.cleanup
	s.cleanup = func(ctx context.Context) { f(ctx); old(ctx) }
}

// Stop runs the cleanup methods and cancels the service context. Calls
// made while a stop is in progress return immediately.
func (s *Service) Stop(ctx context.Context) {
	if !s.stopMutex.TryLock() {
		return
	}
	defer s.stopMutex.Unlock()

	s.Log(ctx).Info("service stopping")

	if s.cleanup != nil {
		s.cleanup(ctx)
		s.cleanup = nil
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}
