package throttle

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/throttler/rate"
)

// Fn gates arbitrary call sites behind one shared rate budget. It
// pushes a sentinel through a capacity-1 pacing channel and a
// throttled output; the receive from the throttled side is the
// rate-limited step.
//
// Concurrent waiters are served in scheduler order, not strict
// arrival order: multiple goroutines blocked on the pacing channel
// are unblocked in whatever order the runtime picks.
type Fn struct {
	factory *Factory[struct{}]
	pace    chan struct{}
	out     <-chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewFn creates a function throttler at the given rate. It accepts
// the same options as NewFactory.
func NewFn(r float64, u rate.Unit, optFns ...Option) (*Fn, error) {
	f, err := NewFactory[struct{}](r, u, optFns...)
	if err != nil {
		return nil, err
	}

	pace := make(chan struct{}, 1)

	return &Fn{
		factory: f,
		pace:    pace,
		out:     f.Throttle(pace),
		done:    make(chan struct{}),
	}, nil
}

// Wait blocks until the budget admits one more call. It returns
// ErrClosed once the throttler has been closed.
func (t *Fn) Wait() error {
	return t.WaitContext(context.Background())
}

// WaitContext is Wait bounded by a context. A wait abandoned after
// its sentinel entered the pacing channel leaves that sentinel for
// the next waiter, which then passes without consuming a fresh slot.
func (t *Fn) WaitContext(ctx context.Context) error {
	ctx, span := t.factory.tracer.Start(ctx, "throttler.wait",
		trace.WithAttributes(attribute.String("throttler.id", t.factory.ID())))
	defer span.End()

	select {
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case t.pace <- struct{}{}:
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case _, ok := <-t.out:
		if !ok {
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// ID returns the underlying factory's instance ID.
func (t *Fn) ID() string {
	return t.factory.ID()
}

// SetRate swaps the rate; see Factory.SetRate.
func (t *Fn) SetRate(r float64) error {
	return t.factory.SetRate(r)
}

// Close releases the filler and piper. In-flight waiters return
// ErrClosed; wrapped functions invoke their target unthrottled from
// then on. Close is idempotent.
func (t *Fn) Close() {
	t.once.Do(func() {
		close(t.done)
		t.factory.Close()
	})
}

// Func wraps fn so each call first passes the shared budget. All
// wrappers built from the same Fn share that budget.
func Func[R any](t *Fn, fn func() R) func() R {
	return func() R {
		_ = t.Wait()
		return fn()
	}
}

// Func1 is Func for single-argument functions.
func Func1[A, R any](t *Fn, fn func(A) R) func(A) R {
	return func(a A) R {
		_ = t.Wait()
		return fn(a)
	}
}

// Func2 is Func for two-argument functions.
func Func2[A, B, R any](t *Fn, fn func(A, B) R) func(A, B) R {
	return func(a A, b B) R {
		_ = t.Wait()
		return fn(a, b)
	}
}
