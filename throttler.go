// Package throttler exposes channel and function throttling.
package throttler

import (
	"github.com/adamwoolhether/throttler/rate"
	"github.com/adamwoolhether/throttler/throttle"
)

// Chan throttles reads from in to r messages per unit. It is
// shorthand for building a throttle.Factory and applying it once.
func Chan[T any](in <-chan T, r float64, u rate.Unit, opts ...throttle.Option) (<-chan T, error) {
	return throttle.Chan(in, r, u, opts...)
}

// Fn instantiates a new function throttler with the provided options.
func Fn(r float64, u rate.Unit, opts ...throttle.Option) (*throttle.Fn, error) {
	return throttle.NewFn(r, u, opts...)
}
