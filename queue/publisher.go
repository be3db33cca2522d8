package queue

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/pitabwire/natspubsub" // nats:// driver registration
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // mem:// driver registration

	"github.com/pitabwire/fluent/internal"
	"github.com/pitabwire/fluent/localization"
)

const defaultPublisherShutdownTimeout = 30 * time.Second

var ErrPublisherNotInitialised = errors.New("queue: publisher is not initialised")

type publisher struct {
	reference string
	url       string
	topic     *pubsub.Topic
	isInit    atomic.Bool
}

func NewPublisher(reference string, queueURL string) Publisher {
	return &publisher{
		reference: reference,
		url:       queueURL,
	}
}

func (p *publisher) Ref() string {
	return p.reference
}

// Publish sends payload with the trace context and the language
// preferences of ctx attached as metadata.
func (p *publisher) Publish(ctx context.Context, payload any, headers ...map[string]string) error {
	topic := p.topic
	if topic == nil {
		return ErrPublisherNotInitialised
	}

	metadata := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, metadata)

	for _, h := range headers {
		maps.Copy(metadata, h)
	}

	if language := localization.FromContext(ctx); len(language) > 0 {
		metadata = localization.ToMap(metadata, language)
	}

	message, err := internal.Marshal(payload)
	if err != nil {
		return err
	}

	return topic.Send(ctx, &pubsub.Message{
		Body:     message,
		Metadata: metadata,
	})
}

func (p *publisher) Init(ctx context.Context) error {
	if p.isInit.Load() && p.topic != nil {
		return nil
	}

	topic, err := pubsub.OpenTopic(ctx, p.url)
	if err != nil {
		return err
	}
	p.topic = topic

	p.isInit.Store(true)
	return nil
}

func (p *publisher) Initiated() bool {
	return p.isInit.Load()
}

func (p *publisher) Stop(ctx context.Context) error {
	sctx := ctx
	if ctx.Err() != nil {
		sctx = context.Background()
	}
	sctx, cancel := context.WithTimeout(sctx, defaultPublisherShutdownTimeout)
	defer cancel()

	p.isInit.Store(false)

	topic := p.topic
	p.topic = nil
	if topic == nil {
		return nil
	}

	// mem:// topics are shared by url within the process; shutting one down
	// breaks every other user of the same url.
	if strings.HasPrefix(strings.ToLower(p.url), "mem://") {
		return nil
	}

	if err := topic.Shutdown(sctx); err != nil &&
		!strings.Contains(strings.ToLower(err.Error()), "topic has been shutdown") {
		return err
	}
	return nil
}
