// Package httpthrottle gates outbound HTTP requests behind a shared
// token-bucket budget.
package httpthrottle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/throttler/rate"
	"github.com/adamwoolhether/throttler/throttle"
)

// Config describes the outbound request budget.
type Config struct {
	Rate  float64
	Unit  rate.Unit
	Burst int
}

var (
	ErrWaitingFailed = errors.New("throttle waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// RoundTripper is an http.RoundTripper that restricts outbound calls
// through a shared function throttler.
type RoundTripper struct {
	fn    *throttle.Fn
	cfg   Config
	next  http.RoundTripper
	logFn func() *slog.Logger
}

// NewRoundTripper returns a RoundTripper that throttles outbound
// requests at cfg's rate. logFn lazily resolves the logger at request
// time. A nil-returning logFn
// skips wait logging.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (*RoundTripper, error) {
	fn, err := throttle.NewFn(cfg.Rate, cfg.Unit, throttle.WithBurst(cfg.Burst))
	if err != nil {
		return nil, fmt.Errorf("building throttler: %w", err)
	}

	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	return &RoundTripper{
		fn:    fn,
		cfg:   cfg,
		next:  next,
		logFn: logFn,
	}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *RoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	start := time.Now()

	if err := t.fn.WaitContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if waited := time.Since(start); waited > time.Millisecond {
		if logger := t.logFn(); logger != nil {
			logger.Info("throttle wait complete",
				"waited", waited.String(),
				"rate", t.cfg.Rate,
				"unit", string(t.cfg.Unit),
				"burst", t.cfg.Burst,
				"path", r.URL.Path)
		}
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}

// Close releases the underlying throttler. Requests issued after
// Close fail with ErrWaitingFailed wrapping throttle.ErrClosed.
func (t *RoundTripper) Close() {
	t.fn.Close()
}
