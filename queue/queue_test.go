package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/fluent/localization"
	"github.com/pitabwire/fluent/queue"
	"github.com/pitabwire/fluent/workerpool"
)

type QueueSuite struct {
	suite.Suite
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}

type received struct {
	body      string
	languages []string
	metadata  map[string]string
}

func (s *QueueSuite) TestPublishAndSubscribe() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := workerpool.New(ctx, workerpool.WithSinglePoolCapacity(2))
	s.Require().NoError(err)
	defer pool.Shutdown()

	url := "mem://" + s.T().Name()
	pub := queue.NewPublisher("updates", url)
	s.Require().NoError(pub.Init(ctx))
	s.True(pub.Initiated())

	messages := make(chan received, 2)
	sub := queue.NewSubscriber(pool, "updates", url,
		queue.SubscribeWorkerFunc(func(ctx context.Context, metadata map[string]string, message []byte) error {
			messages <- received{
				body:      string(message),
				languages: localization.FromContext(ctx),
				metadata:  metadata,
			}
			return nil
		}))
	s.Require().NoError(sub.Init(ctx))
	s.True(sub.Initiated())
	s.Equal(url, sub.URI())

	pctx := localization.ToContext(ctx, []string{"sw", "en"})
	s.Require().NoError(pub.Publish(pctx, map[string]string{"locale": "sw"}, map[string]string{"origin": "test"}))

	select {
	case msg := <-messages:
		s.JSONEq(`{"locale":"sw"}`, msg.body)
		s.Equal([]string{"sw", "en"}, msg.languages)
		s.Equal("test", msg.metadata["origin"])
	case <-time.After(5 * time.Second):
		s.Fail("message not delivered")
	}

	s.Require().NoError(sub.Stop(ctx))
	s.False(sub.Initiated())
	s.Require().NoError(pub.Stop(ctx))
	s.Require().ErrorIs(pub.Publish(ctx, "late"), queue.ErrPublisherNotInitialised)
}

func (s *QueueSuite) TestFailedHandlerIsRedelivered() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "mem://" + s.T().Name()
	pub := queue.NewPublisher("retry", url)
	s.Require().NoError(pub.Init(ctx))
	defer func() { _ = pub.Stop(ctx) }()

	var (
		mu       sync.Mutex
		attempts int
	)
	done := make(chan struct{})
	sub := queue.NewSubscriber(nil, "retry", url,
		queue.SubscribeWorkerFunc(func(context.Context, map[string]string, []byte) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts == 1 {
				return errors.New("not yet")
			}
			close(done)
			return nil
		}))
	s.Require().NoError(sub.Init(ctx))
	defer func() { _ = sub.Stop(ctx) }()

	s.Require().NoError(pub.Publish(ctx, "sw/main.ftl"))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.Fail("message not redelivered")
	}
}

func (s *QueueSuite) TestReceiveBeforeInit() {
	sub := queue.NewSubscriber(nil, "idle", "mem://idle")
	_, err := sub.Receive(context.Background())
	s.Require().Error(err)
	s.Require().NoError(sub.Stop(context.Background()))
}

func (s *QueueSuite) TestRestartAfterStop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "mem://" + s.T().Name()
	pub := queue.NewPublisher("restart", url)
	s.Require().NoError(pub.Init(ctx))
	defer func() { _ = pub.Stop(ctx) }()

	messages := make(chan string, 1)
	sub := queue.NewSubscriber(nil, "restart", url,
		queue.SubscribeWorkerFunc(func(_ context.Context, _ map[string]string, message []byte) error {
			messages <- string(message)
			return nil
		}))
	s.Require().NoError(sub.Init(ctx))

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sub.Stop(ctx)
		}()
	}
	wg.Wait()
	s.False(sub.Initiated())

	_, err := sub.Receive(ctx)
	s.Require().Error(err)

	s.Require().NoError(sub.Init(ctx))
	defer func() { _ = sub.Stop(ctx) }()
	s.Require().NoError(pub.Publish(ctx, "fr/main.ftl"))

	select {
	case msg := <-messages:
		s.Equal("fr/main.ftl", msg)
	case <-time.After(5 * time.Second):
		s.Fail("message not delivered after restart")
	}
}
