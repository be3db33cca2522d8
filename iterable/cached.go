// Package iterable provides lazy, replayable wrappers over sequence sources
// that can natively be consumed only once.
//
// A wrapper takes exclusive ownership of its source. Every element is pulled
// from the source at most once and kept, so the wrapped sequence can be
// consumed through Next and replayed from the start any number of times
// through Replay. Once the source reports exhaustion it is never advanced
// again.
//
// Wrappers are not safe for concurrent use; callers serialize access.
package iterable

import (
	"iter"
)

// Cached is the synchronous wrapper.
type Cached[T any] struct {
	src Stepper[T]
	buf buffer[T]
}

// New wraps src. A nil source is rejected with ErrNoStepper.
func New[T any](src Stepper[T]) (*Cached[T], error) {
	if isNil(src) {
		return nil, ErrNoStepper
	}
	return &Cached[T]{src: src}, nil
}

// MustNew is like New but panics when src is nil.
func MustNew[T any](src Stepper[T]) *Cached[T] {
	c, err := New(src)
	if err != nil {
		panic(err)
	}
	return c
}

// FromSlice wraps a fixed list of items.
func FromSlice[T any](items []T) *Cached[T] {
	i := 0
	return MustNew[T](StepperFunc[T](func() (Result[T], error) {
		if i >= len(items) {
			return Exhausted[T](), nil
		}
		v := items[i]
		i++
		return Value(v), nil
	}))
}

// FromSeq wraps a range-over-func sequence. The sequence is pulled lazily
// and released when it is exhausted.
func FromSeq[T any](seq iter.Seq[T]) (*Cached[T], error) {
	if seq == nil {
		return nil, ErrNoStepper
	}

	var (
		next func() (T, bool)
		stop func()
	)
	return New[T](StepperFunc[T](func() (Result[T], error) {
		if next == nil {
			next, stop = iter.Pull(seq)
		}
		v, ok := next()
		if !ok {
			stop()
			return Exhausted[T](), nil
		}
		return Value(v), nil
	}))
}

// advance pulls exactly one result from the source into the buffer. On error
// the buffer is left as it was.
func (c *Cached[T]) advance() error {
	r, err := c.src.Next()
	if err != nil {
		return err
	}
	c.buf.record(r)
	return nil
}

// Next returns the oldest result not yet consumed through Next, advancing
// the source only when nothing is pending. After exhaustion it keeps
// returning the exhausted result without touching the source.
func (c *Cached[T]) Next() (Result[T], error) {
	if r, ok := c.buf.pop(); ok {
		return r, nil
	}
	if err := c.advance(); err != nil {
		return Result[T]{}, err
	}
	r, _ := c.buf.pop()
	return r, nil
}

// TouchNext prefetches one result when nothing is pending, without
// consuming it. It never reads further ahead than one element.
func (c *Cached[T]) TouchNext() error {
	if !c.buf.empty() {
		return nil
	}
	return c.advance()
}

// All returns a sequence that consumes the wrapper through Next. A source
// error is yielded once and ends the sequence.
func (c *Cached[T]) All() iter.Seq2[T, error] {
	return seqOf(c.Next)
}

// Replay returns an independent cursor positioned at the first element.
func (c *Cached[T]) Replay() *Cursor[T] {
	return &Cursor[T]{c: c}
}

// Len is the number of elements fetched from the source so far.
func (c *Cached[T]) Len() int {
	return len(c.buf.log)
}

// Pending is the number of fetched elements not yet consumed through Next.
func (c *Cached[T]) Pending() int {
	return c.buf.pending()
}

// Exhausted reports whether the source has signalled its end.
func (c *Cached[T]) Exhausted() bool {
	return c.buf.done
}

// Cursor is a replay view over a Cached wrapper. Cursors share the wrapper's
// buffer and source, so elements fetched by one cursor are visible to all.
type Cursor[T any] struct {
	c   *Cached[T]
	pos int
}

// Next returns the element at the cursor position, advancing the shared
// source when the cursor has caught up with everything fetched so far.
func (cur *Cursor[T]) Next() (Result[T], error) {
	r, ok := cur.c.buf.at(cur.pos)
	if !ok {
		if err := cur.c.advance(); err != nil {
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
func (cur *Cursor[T]) All() iter.Seq2[T, error] {
	return seqOf(cur.Next)
}

func seqOf[T any](next func() (Result[T], error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			r, err := next()
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if r.Done {
				return
			}
			if !yield(r.Value, nil) {
				return
			}
		}
	}
}
