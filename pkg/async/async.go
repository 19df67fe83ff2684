// Package async runs work in the background and hands back a Future.
package async

import (
	"context"
	"fmt"
	"time"
)

// Future holds the result of a background call.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await blocks until the call finishes.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout is Await bounded by timeout; it returns ErrTimeout when the
// call is still running.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// Done is closed once the call finishes.
func (f *Future[U]) Done() <-chan struct{} { return f.done }

// Async runs fn(ctx, param) in a new goroutine. A context canceled before the
// goroutine starts short-circuits with ctx.Err(); a panic in fn is recovered
// into an ErrPanic error.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()

	return f
}
