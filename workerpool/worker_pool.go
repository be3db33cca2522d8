// Package workerpool runs batches of tasks on an ants goroutine pool.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
	"github.com/rs/xid"

	"github.com/pitabwire/fluent/config"
)

// WorkerPool defines the common methods for worker pool operations.
// This allows the Service to hold either a single ants.Pool or an ants.MultiPool.
type WorkerPool interface {
	Submit(ctx context.Context, task func()) error
	Shutdown()
}

// Options defines configurable options for a worker pool.
type Options struct {
	PoolCount          int
	SinglePoolCapacity int
	ExpiryDuration     time.Duration
	Nonblocking        bool
	Logger             *util.LogEntry
}

// Option defines a function that configures worker pool options.
type Option func(*Options)

// WithPoolCount sets the number of worker pools.
func WithPoolCount(count int) Option {
	return func(opts *Options) {
		opts.PoolCount = count
	}
}

// WithSinglePoolCapacity sets the capacity for a single worker pool.
func WithSinglePoolCapacity(capacity int) Option {
	return func(opts *Options) {
		opts.SinglePoolCapacity = capacity
	}
}

// WithPoolExpiryDuration sets the expiry duration for idle workers.
func WithPoolExpiryDuration(duration time.Duration) Option {
	return func(opts *Options) {
		opts.ExpiryDuration = duration
	}
}

// WithPoolNonblocking makes Submit fail instead of waiting when the pool
// is saturated.
func WithPoolNonblocking(nonblocking bool) Option {
	return func(opts *Options) {
		opts.Nonblocking = nonblocking
	}
}

func WithPoolLogger(logger *util.LogEntry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// OptionsFromConfig maps worker pool configuration onto options.
func OptionsFromConfig(cfg config.ConfigurationWorkerPool) []Option {
	return []Option{
		WithPoolCount(cfg.GetCount()),
		WithSinglePoolCapacity(cfg.GetCapacity()),
		WithPoolExpiryDuration(cfg.GetExpiryDuration()),
	}
}

// New creates a pool. More than one pool count gives an ants.MultiPool
// balancing on the least busy pool.
func New(ctx context.Context, opts ...Option) (WorkerPool, error) {
	wopts := &Options{SinglePoolCapacity: 1, Logger: util.Log(ctx)}
	for _, opt := range opts {
		opt(wopts)
	}

	antsOpts := []ants.Option{
		ants.WithNonblocking(wopts.Nonblocking),
		ants.WithLogger(wopts.Logger),
	}
	if wopts.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(wopts.ExpiryDuration))
	}

	if wopts.PoolCount <= 1 {
		p, err := ants.NewPool(wopts.SinglePoolCapacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &singlePoolWrapper{pool: p}, nil
	}

	mp, err := ants.NewMultiPool(wopts.PoolCount, wopts.SinglePoolCapacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &multiPoolWrapper{multiPool: mp}, nil
}

// singlePoolWrapper adapts *ants.Pool to the WorkerPool interface.
type singlePoolWrapper struct {
	pool *ants.Pool
}

func (w *singlePoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.pool.Submit(task)
}

func (w *singlePoolWrapper) Shutdown() {
	w.pool.Release()
}

// multiPoolWrapper adapts *ants.MultiPool to the WorkerPool interface.
type multiPoolWrapper struct {
	multiPool *ants.MultiPool
}

func (w *multiPoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.multiPool.Submit(task)
}

func (w *multiPoolWrapper) Shutdown() {
	_ = w.multiPool.ReleaseTimeout(time.Second)
}

// RunAll runs every task on pool and waits for them. Failures are joined;
// tasks that could not be submitted count as failures.
func RunAll(ctx context.Context, pool WorkerPool, tasks ...func(ctx context.Context) error) error {
	batch := xid.New().String()
	log := util.Log(ctx).WithField("batch", batch)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, task := range tasks {
		wg.Add(1)
		err := pool.Submit(ctx, func() {
			defer wg.Done()
			if taskErr := task(ctx); taskErr != nil {
				record(taskErr)
			}
		})
		if err != nil {
			wg.Done()
			record(err)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		log.WithField("failed", len(errs)).WithField("tasks", len(tasks)).Debug("batch finished with failures")
	}
	return errors.Join(errs...)
}
