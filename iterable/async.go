package iterable

import (
	"context"
	"iter"
)

// AsyncCached is the wrapper for sources whose step may block. It suspends
// only while waiting on the source; everything else is served from the
// buffer.
type AsyncCached[T any] struct {
	src ContextStepper[T]
	buf buffer[T]
}

// NewAsync wraps src. A nil source is rejected with ErrNoStepper.
func NewAsync[T any](src ContextStepper[T]) (*AsyncCached[T], error) {
	if isNil(src) {
		return nil, ErrNoStepper
	}
	return &AsyncCached[T]{src: src}, nil
}

// NewAsyncFromStepper wraps a synchronous source behind the asynchronous
// interface.
func NewAsyncFromStepper[T any](src Stepper[T]) (*AsyncCached[T], error) {
	if isNil(src) {
		return nil, ErrNoStepper
	}
	return NewAsync(Synchronous(src))
}

func (c *AsyncCached[T]) advance(ctx context.Context) error {
	r, err := c.src.NextContext(ctx)
	if err != nil {
		return err
	}
	c.buf.record(r)
	return nil
}

// Next returns the oldest result not yet consumed through Next, waiting on
// the source only when nothing is pending.
func (c *AsyncCached[T]) Next(ctx context.Context) (Result[T], error) {
	if r, ok := c.buf.pop(); ok {
		return r, nil
	}
	if err := c.advance(ctx); err != nil {
		return Result[T]{}, err
	}
	r, _ := c.buf.pop()
	return r, nil
}

// NextAsync starts Next in the background and returns a handle to await
// its outcome. The caller must await the handle before issuing another call
// on the wrapper.
func (c *AsyncCached[T]) NextAsync(ctx context.Context) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res, f.err = c.Next(ctx)
	}()
	return f
}

// TouchNext prefetches one result when nothing is pending.
func (c *AsyncCached[T]) TouchNext(ctx context.Context) error {
	if !c.buf.empty() {
		return nil
	}
	return c.advance(ctx)
}

// All returns a sequence that consumes the wrapper through Next.
func (c *AsyncCached[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return seqOf(func() (Result[T], error) {
		return c.Next(ctx)
	})
}

// Replay returns an independent cursor positioned at the first element.
func (c *AsyncCached[T]) Replay() *AsyncCursor[T] {
	return &AsyncCursor[T]{c: c}
}

// Len is the number of elements fetched from the source so far.
func (c *AsyncCached[T]) Len() int {
	return len(c.buf.log)
}

// Pending is the number of fetched elements not yet consumed through Next.
func (c *AsyncCached[T]) Pending() int {
	return c.buf.pending()
}

// Exhausted reports whether the source has signalled its end.
func (c *AsyncCached[T]) Exhausted() bool {
	return c.buf.done
}

// AsyncCursor is a replay view over an AsyncCached wrapper. Cursors share
// the wrapper's buffer and source, so elements fetched by one cursor are
// visible to all.
type AsyncCursor[T any] struct {
	c   *AsyncCached[T]
	pos int
}

// Next returns the element at the cursor position, advancing the shared
// source when the cursor has caught up with everything fetched so far.
func (cur *AsyncCursor[T]) Next(ctx context.Context) (Result[T], error) {
	r, ok := cur.c.buf.at(cur.pos)
	if !ok {
		if err := cur.c.advance(ctx); err != nil {
			return Result[T]{}, err
		}
		r, _ = cur.c.buf.at(cur.pos)
	}
	if !r.Done {
		cur.pos++
	}
	return r, nil
}

// All returns a sequence over the remaining elements of the cursor.
func (cur *AsyncCursor[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return seqOf(func() (Result[T], error) {
		return cur.Next(ctx)
	})
}

// Future is the pending outcome of AsyncCached.NextAsync.
type Future[T any] struct {
	done chan struct{}
	res  Result[T]
	err  error
}

// Done is closed once the step has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the step completes or ctx ends. Giving up on ctx does
// not cancel the step; the element it consumes stays visible to replay
// cursors.
func (f *Future[T]) Await(ctx context.Context) (Result[T], error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}
