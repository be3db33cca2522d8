package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"gocloud.dev/gcerrors"
	"gocloud.dev/pubsub"

	"github.com/pitabwire/fluent/localization"
	"github.com/pitabwire/fluent/workerpool"
)

const (
	subscriberShutdownTimeout = time.Second
	recreateBackoff           = 500 * time.Millisecond
)

type subscriber struct {
	reference    string
	url          string
	handlers     []SubscribeWorker
	subscription atomic.Pointer[pubsub.Subscription]
	isInit       atomic.Bool
	pool         workerpool.WorkerPool
}

// NewSubscriber creates a subscriber that, once initialised, hands every
// message to handlers. Messages are processed on pool when one is given.
func NewSubscriber(
	pool workerpool.WorkerPool,
	reference string,
	queueURL string,
	handlers ...SubscribeWorker,
) Subscriber {
	return &subscriber{
		reference: reference,
		url:       queueURL,
		handlers:  handlers,
		pool:      pool,
	}
}

func (s *subscriber) Ref() string {
	return s.reference
}

func (s *subscriber) URI() string {
	return s.url
}

func (s *subscriber) Initiated() bool {
	return s.isInit.Load()
}

func (s *subscriber) Receive(ctx context.Context) (*pubsub.Message, error) {
	sub := s.subscription.Load()
	if sub == nil {
		return nil, errors.New("queue: only initialised subscriptions can pull messages")
	}
	return sub.Receive(ctx)
}

func (s *subscriber) createSubscription(ctx context.Context) error {
	if s.subscription.Load() != nil {
		return nil
	}

	if strings.TrimSpace(s.url) == "" {
		return errors.New("queue: subscriber url cannot be empty")
	}

	subs, err := pubsub.OpenSubscription(ctx, s.url)
	if err != nil {
		return fmt.Errorf("queue: could not open topic subscription: %w", err)
	}
	if !s.subscription.CompareAndSwap(nil, subs) {
		_ = subs.Shutdown(ctx)
	}
	return nil
}

func (s *subscriber) Init(ctx context.Context) error {
	if s.isInit.Load() && s.subscription.Load() != nil {
		return nil
	}

	if err := s.createSubscription(ctx); err != nil {
		return err
	}

	s.isInit.Store(true)
	if len(s.handlers) > 0 {
		go s.listen(ctx)
	}
	return nil
}

func (s *subscriber) Stop(ctx context.Context) error {
	sctx := ctx
	if ctx.Err() != nil {
		sctx = context.Background()
	}
	sctx, cancel := context.WithTimeout(sctx, subscriberShutdownTimeout)
	defer cancel()

	if !s.isInit.Swap(false) {
		return nil
	}
	sub := s.subscription.Swap(nil)
	if sub == nil {
		return nil
	}
	return sub.Shutdown(sctx)
}

func (s *subscriber) listen(ctx context.Context) {
	logger := util.Log(ctx).
		WithField("name", s.reference).
		WithField("url", s.url)
	logger.Debug("starting to listen for messages")

	for {
		sub := s.subscription.Load()
		if sub == nil {
			logger.Debug("subscription stopped")
			return
		}

		msg, err := sub.Receive(ctx)
		switch {
		case err == nil:
			s.process(ctx, msg)
		case ctx.Err() != nil:
			if stopErr := s.Stop(ctx); stopErr != nil {
				logger.WithError(stopErr).Error("could not stop subscription")
			}
			logger.Debug("exiting due to canceled context")
			return
		case !s.isInit.Load() || s.subscription.Load() != sub || gcerrors.Code(err) == gcerrors.FailedPrecondition:
			logger.Debug("subscription stopped")
			return
		default:
			logger.WithError(err).Warn("could not pull message, recreating subscription")
			s.recreate(ctx, sub)
		}
	}
}

// recreate replaces old with a fresh subscription. It gives up when the
// subscriber is stopped or old was already replaced.
func (s *subscriber) recreate(ctx context.Context, old *pubsub.Subscription) {
	if !s.subscription.CompareAndSwap(old, nil) {
		return
	}
	_ = old.Shutdown(ctx)

	for s.isInit.Load() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(recreateBackoff):
		}

		err := s.createSubscription(ctx)
		if err == nil {
			break
		}
		util.Log(ctx).WithError(err).WithField("name", s.reference).Error("could not recreate subscription")
	}

	// Stop may have run while the new subscription was opening.
	if !s.isInit.Load() {
		if sub := s.subscription.Swap(nil); sub != nil {
			_ = sub.Shutdown(ctx)
		}
	}
}

func (s *subscriber) process(ctx context.Context, msg *pubsub.Message) {
	task := func() {
		var metadata propagation.MapCarrier = msg.Metadata

		pCtx := otel.GetTextMapPropagator().Extract(ctx, metadata)
		if languages := localization.FromMap(metadata); len(languages) > 0 {
			pCtx = localization.ToContext(pCtx, languages)
		}

		for _, worker := range s.handlers {
			if err := worker.Handle(pCtx, metadata, msg.Body); err != nil {
				util.Log(pCtx).WithError(err).WithField("name", s.reference).Warn("could not handle message")
				if msg.Nackable() {
					msg.Nack()
				}
				return
			}
		}
		msg.Ack()
	}

	if s.pool == nil {
		task()
		return
	}

	if err := s.pool.Submit(ctx, task); err != nil {
		util.Log(ctx).WithError(err).WithField("name", s.reference).Error("could not submit message")
		if msg.Nackable() {
			msg.Nack()
		}
	}
}
