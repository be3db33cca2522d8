// Package queue publishes and consumes messages over gocloud pubsub
// topics. mem:// and nats:// urls are supported.
package queue

import (
	"context"

	"gocloud.dev/pubsub"
)

type Publisher interface {
	Initiated() bool
	Ref() string
	Init(ctx context.Context) error

	Publish(ctx context.Context, payload any, headers ...map[string]string) error
	Stop(ctx context.Context) error
}

type Subscriber interface {
	Ref() string
	URI() string
	Initiated() bool

	Init(ctx context.Context) error
	Receive(ctx context.Context) (*pubsub.Message, error)
	Stop(ctx context.Context) error
}

// SubscribeWorker handles one message. Returning an error nacks it.
type SubscribeWorker interface {
	Handle(ctx context.Context, metadata map[string]string, message []byte) error
}

// SubscribeWorkerFunc adapts a function to a SubscribeWorker.
type SubscribeWorkerFunc func(ctx context.Context, metadata map[string]string, message []byte) error

func (f SubscribeWorkerFunc) Handle(ctx context.Context, metadata map[string]string, message []byte) error {
	return f(ctx, metadata, message)
}
