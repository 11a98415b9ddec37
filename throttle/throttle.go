package throttle

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/throttler/bucket"
	"github.com/adamwoolhether/throttler/rate"
)

// Factory throttles channels of T against one shared rate budget.
// It owns a single token bucket and a single filler; every channel
// passed to Throttle gets its own piper goroutine consuming from
// that bucket, one token per forwarded value.
type Factory[T any] struct {
	id     string
	bucket *bucket.Bucket
	plan   atomic.Pointer[rate.Plan]
	logger *slog.Logger
	tracer trace.Tracer

	mu   sync.Mutex // guards spec during SetRate
	spec rate.Spec
}

// NewFactory validates the rate specification, derives the bucket
// scalars, and starts the filler. A no-op tracer and the default
// slog logger are used unless overridden via options.
func NewFactory[T any](r float64, u rate.Unit, optFns ...Option) (*Factory[T], error) {
	opts := options{gran: 1}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, err
		}
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	spec := rate.Spec{
		Rate:            r,
		Unit:            u,
		Burst:           opts.burst,
		Granularity:     opts.gran,
		GranularityUnit: opts.granUnit,
	}

	plan, err := spec.Derive()
	if err != nil {
		return nil, fmt.Errorf("deriving rate plan: %w", err)
	}

	f := &Factory[T]{
		id:     uuid.New().String(),
		bucket: bucket.New(plan.Capacity),
		logger: opts.logger,
		tracer: opts.tracer,
		spec:   spec,
	}
	f.plan.Store(&plan)

	go bucket.NewFiller(f.bucket, f.Plan, f.logger).Run()

	f.logger.Debug("throttle factory started",
		"id", f.id,
		"spec", spec.String(),
		"interval", plan.Interval.String(),
		"token_value", plan.TokenValue,
		"capacity", plan.Capacity)

	return f, nil
}

// Throttle returns a channel whose reads are rate-limited by the
// factory's bucket. Values arrive in the order they were sent on in.
// The returned channel is closed once in is closed, or once the
// shared bucket shuts down.
func (f *Factory[T]) Throttle(in <-chan T) <-chan T {
	out := make(chan T)
	go f.pipe(in, out)

	return out
}

// pipe forwards exactly one value per consumed token. On end of
// input it closes the output first and the bucket second, so the
// filler stops and sibling pipers wind down.
func (f *Factory[T]) pipe(in <-chan T, out chan<- T) {
	f.logger.Debug("piper started", "id", f.id)
	defer f.logger.Debug("piper stopped", "id", f.id)

	for {
		if !f.bucket.Take() {
			close(out)
			return
		}

		var v T
		var ok bool
		select {
		case v, ok = <-in:
			if !ok {
				close(out)
				f.bucket.Close()
				return
			}
		case <-f.bucket.Done():
			close(out)
			return
		}

		select {
		case out <- v:
		case <-f.bucket.Done():
			close(out)
			return
		}
	}
}

// SetRate swaps the rate while keeping the original unit, burst, and
// granularity. The filler picks the new plan up on its next cycle.
// The bucket's capacity is fixed at construction; if the new rate
// derives a token value that no longer fits, SetRate fails with
// ErrCapacityExceeded and the previous rate stays in effect.
func (f *Factory[T]) SetRate(r float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	spec := f.spec
	spec.Rate = r

	plan, err := spec.Derive()
	if err != nil {
		return fmt.Errorf("deriving rate plan: %w", err)
	}

	if plan.TokenValue > f.bucket.Cap() {
		return fmt.Errorf("rate %s needs %d tokens per deposit, bucket holds %d: %w",
			spec, plan.TokenValue, f.bucket.Cap(), ErrCapacityExceeded)
	}

	f.spec = spec
	f.plan.Store(&plan)

	f.logger.Debug("throttle rate swapped",
		"id", f.id,
		"spec", spec.String(),
		"interval", plan.Interval.String(),
		"token_value", plan.TokenValue)

	return nil
}

// Plan returns the currently effective derived scalars.
func (f *Factory[T]) Plan() rate.Plan {
	return *f.plan.Load()
}

// ID returns the factory's generated instance ID, as carried in its
// logs and spans.
func (f *Factory[T]) ID() string {
	return f.id
}

// Close shuts the factory down without waiting for inputs to close:
// the bucket closes, the filler stops, and every outstanding output
// channel is closed. Close is idempotent.
func (f *Factory[T]) Close() {
	f.bucket.Close()
}

// Chan throttles a single channel at the given rate. It is shorthand
// for building a factory and applying it once.
func Chan[T any](in <-chan T, r float64, u rate.Unit, optFns ...Option) (<-chan T, error) {
	f, err := NewFactory[T](r, u, optFns...)
	if err != nil {
		return nil, err
	}

	return f.Throttle(in), nil
}
