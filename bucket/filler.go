package bucket

import (
	"log/slog"
	"time"

	xrate "golang.org/x/time/rate"

	"github.com/adamwoolhether/throttler/rate"
)

// Filler periodically deposits tokens into a bucket. The plan is
// re-read every cycle, so a swapped rate takes effect on the next
// deposit without restarting the filler.
type Filler struct {
	bucket  *Bucket
	plan    func() rate.Plan
	log     *slog.Logger
	dropLog xrate.Sometimes
}

// NewFiller wires a filler to its bucket. plan must be safe for
// concurrent use; it is called once per cycle and never cached
// across cycles.
func NewFiller(b *Bucket, plan func() rate.Plan, log *slog.Logger) *Filler {
	if log == nil {
		log = slog.Default()
	}

	return &Filler{
		bucket:  b,
		plan:    plan,
		log:     log,
		dropLog: xrate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// Run deposits tokens until the bucket is closed. It offers the
// plan's token value one token at a time, then waits out the
// interval. Offering one at a time matters: a full bucket drops the
// surplus instead of stalling the cycle, so the filler only ever
// terminates early when the bucket has been closed.
func (f *Filler) Run() {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		p := f.plan()

		for i := 0; i < p.TokenValue; i++ {
			switch f.bucket.Offer() {
			case Closed:
				f.log.Debug("filler stopped, bucket closed")
				return
			case Dropped:
				f.dropLog.Do(func() {
					f.log.Debug("token dropped, bucket full",
						"capacity", f.bucket.Cap(),
						"token_value", p.TokenValue)
				})
			case Accepted:
			}
		}

		timer.Reset(p.Interval)
		select {
		case <-f.bucket.Done():
			if !timer.Stop() {
				<-timer.C
			}
			f.log.Debug("filler stopped, bucket closed")
			return
		case <-timer.C:
		}
	}
}
