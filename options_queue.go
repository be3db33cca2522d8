package fluent

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/internal"
	"github.com/pitabwire/fluent/queue"
	"github.com/pitabwire/fluent/resource"
)

const resourceUpdatesRef = "l10n-resource-updates"

// ErrNoResourceUpdates is returned when publishing without an updates topic.
var ErrNoResourceUpdates = errors.New("fluent: no resource updates topic configured")

// ResourceChange announces that a resource was edited at its origin.
type ResourceChange struct {
	Locale     string `json:"locale"`
	ResourceID string `json:"resource_id"`
}

// ResourceChangeListener is called after the cached copy of a changed
// resource has been dropped.
type ResourceChangeListener func(ctx context.Context, change ResourceChange)

type resourceUpdates struct {
	publisher  queue.Publisher
	subscriber queue.Subscriber

	mu        sync.RWMutex
	listeners []ResourceChangeListener
}

// WithResourceUpdates publishes and consumes resource change notices on the
// pubsub topic at url, e.g. mem://l10n-updates or nats://host/subject.
// Every notice received drops the cached copy of the resource.
func WithResourceUpdates(url string) Option {
	return func(ctx context.Context, s *Service) {
		updates := &resourceUpdates{publisher: queue.NewPublisher(resourceUpdatesRef, url)}
		updates.subscriber = queue.NewSubscriber(s.pool, resourceUpdatesRef, url,
			queue.SubscribeWorkerFunc(func(ctx context.Context, _ map[string]string, message []byte) error {
				return s.handleResourceChange(ctx, message)
			}))

		log := s.Log(ctx).WithField("url", url)
		// mem:// subscriptions need the topic to exist first.
		if err := updates.publisher.Init(ctx); err != nil {
			log.WithError(err).Error("could not open resource updates topic")
			return
		}
		if err := updates.subscriber.Init(ctx); err != nil {
			log.WithError(err).Error("could not subscribe to resource updates")
			_ = updates.publisher.Stop(ctx)
			return
		}

		s.updates = updates
		s.AddCleanupMethod(func(ctx context.Context) {
			if err := updates.subscriber.Stop(ctx); err != nil {
				s.Log(ctx).WithError(err).Warn("could not stop resource updates subscription")
			}
			if err := updates.publisher.Stop(ctx); err != nil {
				s.Log(ctx).WithError(err).Warn("could not stop resource updates topic")
			}
		})
	}
}

func withDefaultResourceUpdates() Option {
	return func(ctx context.Context, s *Service) {
		if s.updates != nil {
			return
		}
		if cfg, ok := s.Config().(config.ConfigurationLocalization); ok && cfg.UpdatesURL() != "" {
			WithResourceUpdates(cfg.UpdatesURL())(ctx, s)
		}
	}
}

// OnResourceChange registers fn for every change notice received.
func (s *Service) OnResourceChange(fn ResourceChangeListener) {
	if s.updates == nil {
		return
	}
	s.updates.mu.Lock()
	defer s.updates.mu.Unlock()
	s.updates.listeners = append(s.updates.listeners, fn)
}

// PublishResourceChange tells every service sharing the updates topic that
// a resource changed.
func (s *Service) PublishResourceChange(ctx context.Context, locale, resourceID string) error {
	if s.updates == nil {
		return ErrNoResourceUpdates
	}
	return s.updates.publisher.Publish(ctx, ResourceChange{Locale: locale, ResourceID: resourceID})
}

func (s *Service) handleResourceChange(ctx context.Context, message []byte) error {
	var change ResourceChange
	if err := internal.Unmarshal(message, &change); err != nil {
		s.Log(ctx).WithError(err).Warn("dropping malformed resource change")
		return nil
	}

	log := s.Log(ctx).WithField("locale", change.Locale).WithField("resource", change.ResourceID)
	if cached, ok := s.loader.(*resource.CachedStore); ok {
		if err := cached.Invalidate(ctx, change.Locale, change.ResourceID); err != nil {
			return err
		}
	}
	log.Debug("resource changed")

	s.updates.mu.RLock()
	listeners := append([]ResourceChangeListener(nil), s.updates.listeners...)
	s.updates.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, change)
	}
	return nil
}
