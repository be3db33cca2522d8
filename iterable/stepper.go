package iterable

import (
	"context"
	"errors"
	"reflect"
)

// ErrNoStepper is returned when a wrapper is constructed over a source that
// cannot be advanced.
var ErrNoStepper = errors.New("iterable: source does not implement a step function")

// Result is a single step of a sequence: either a produced value or the
// exhausted signal. Value is the zero value when Done is set.
type Result[T any] struct {
	Value T
	Done  bool
}

// Value wraps v as a produced result.
func Value[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Exhausted returns the terminal result.
func Exhausted[T any]() Result[T] {
	return Result[T]{Done: true}
}

// Stepper is a synchronous sequence source. Each call to Next advances the
// source by one element.
type Stepper[T any] interface {
	Next() (Result[T], error)
}

// ContextStepper is a sequence source whose step may block, e.g. on I/O.
type ContextStepper[T any] interface {
	NextContext(ctx context.Context) (Result[T], error)
}

// StepperFunc adapts a plain function to a Stepper.
type StepperFunc[T any] func() (Result[T], error)

func (f StepperFunc[T]) Next() (Result[T], error) {
	return f()
}

// ContextStepperFunc adapts a plain function to a ContextStepper.
type ContextStepperFunc[T any] func(ctx context.Context) (Result[T], error)

func (f ContextStepperFunc[T]) NextContext(ctx context.Context) (Result[T], error) {
	return f(ctx)
}

// Synchronous exposes a synchronous source through the ContextStepper
// interface. The context is not consulted; the step runs to completion.
func Synchronous[T any](src Stepper[T]) ContextStepper[T] {
	if isNil(src) {
		return nil
	}
	return ContextStepperFunc[T](func(_ context.Context) (Result[T], error) {
		return src.Next()
	})
}

// isNil reports whether v is a nil interface or an interface holding a nil
// func, pointer, map, slice or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
