package throttle

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/throttler/rate"
)

// Option defines optional settings for a Factory or Fn.
//
// WithBurst sets how many tokens may accumulate while no consumer
// is active; the bucket never holds fewer than one deposit's worth.
// WithGranularity and WithGranularityUnit widen the atom of emission.
// WithLogger injects a custom logger.
// WithTracer injects a tracer for wait spans.
type Option func(*options) error

type options struct {
	burst     int
	gran      int
	granUnit  rate.Unit
	logger    *slog.Logger
	tracer    trace.Tracer
}

func WithBurst(n int) Option {
	return func(o *options) error {
		o.burst = n
		return nil
	}
}

func WithGranularity(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.New("granularity must be at least 1")
		}
		o.gran = n
		return nil
	}
}

func WithGranularityUnit(u rate.Unit) Option {
	return func(o *options) error {
		o.granUnit = u
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}
