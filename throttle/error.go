package throttle

import "errors"

var (
	// ErrClosed is returned by Fn waits after the throttler has
	// been closed.
	ErrClosed = errors.New("throttler closed")
	// ErrCapacityExceeded is returned by SetRate when the new rate
	// needs more tokens per deposit than the bucket can hold.
	// Construct the factory with a larger burst instead.
	ErrCapacityExceeded = errors.New("token value exceeds bucket capacity")
)
