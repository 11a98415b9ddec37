// Package bucket implements the bounded token container at the heart
// of the throttler, plus the filler that periodically deposits tokens
// into it.
//
// Tokens are opaque permits: only their presence counts. The bucket
// drops incoming tokens when full rather than blocking the producer
// or evicting existing tokens, which is what bounds the instantaneous
// burst to the bucket's capacity no matter how long consumers have
// been idle.
package bucket

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by TakeContext once the bucket has been closed.
var ErrClosed = errors.New("bucket closed")

// OfferResult describes the outcome of a single Offer.
type OfferResult int

const (
	// Accepted means the token was appended to the bucket.
	Accepted OfferResult = iota
	// Dropped means the bucket was full and the incoming token was
	// silently discarded. The offer still counts as delivered.
	Dropped
	// Closed means the bucket no longer accepts tokens.
	Closed
)

// Bucket is a bounded FIFO of tokens, shared between one filler and
// any number of takers. All methods are safe for concurrent use.
type Bucket struct {
	tokens chan struct{}
	done   chan struct{}
	once   sync.Once
}

// New creates a Bucket holding at most capacity tokens.
// A capacity below 1 is raised to 1.
func New(capacity int) *Bucket {
	if capacity < 1 {
		capacity = 1
	}

	return &Bucket{
		tokens: make(chan struct{}, capacity),
		done:   make(chan struct{}),
	}
}

// Offer appends one token. It never blocks: a full bucket drops the
// incoming token and reports Dropped.
func (b *Bucket) Offer() OfferResult {
	select {
	case <-b.done:
		return Closed
	default:
	}

	select {
	case <-b.done:
		return Closed
	case b.tokens <- struct{}{}:
		return Accepted
	default:
		return Dropped
	}
}

// Take blocks until a token is available or the bucket is closed.
// It reports false once the bucket has been closed, even if tokens
// remain queued.
func (b *Bucket) Take() bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case <-b.tokens:
		return true
	case <-b.done:
		return false
	}
}

// TakeContext is Take with a context: it returns nil when a token was
// consumed, ErrClosed once the bucket has been closed, or the
// context's error if it ends first.
func (b *Bucket) TakeContext(ctx context.Context) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	select {
	case <-b.tokens:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the bucket. Blocked takers are released, further
// offers report Closed. Close is idempotent.
func (b *Bucket) Close() {
	b.once.Do(func() {
		close(b.done)
	})
}

// Done returns a channel that is closed when the bucket is closed.
func (b *Bucket) Done() <-chan struct{} {
	return b.done
}

// Len returns the number of tokens currently queued.
func (b *Bucket) Len() int {
	return len(b.tokens)
}

// Cap returns the bucket's capacity.
func (b *Bucket) Cap() int {
	return cap(b.tokens)
}
