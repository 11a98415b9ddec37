// Package throttle rate-limits channels and function calls with a
// token-bucket scheduler.
//
// # Throttling a Channel
//
// Use [NewFactory] to create a [Factory] for a given rate, then feed
// it input channels:
//
//	f, err := throttle.NewFactory[string](100, rate.Second,
//		throttle.WithBurst(20),
//	)
//	out := f.Throttle(in)
//	for v := range out { ... }
//
// Every channel passed to the same factory shares one token bucket,
// so the sum of their emission rates obeys the factory's single rate
// budget (statistical multiplexing). For a one-off, [Chan] builds a
// factory and applies it in one step.
//
// # Throttling Functions
//
// [NewFn] gates arbitrary call sites behind one shared budget:
//
//	t, err := throttle.NewFn(10, rate.Second)
//	defer t.Close()
//
//	slowAdd := throttle.Func2(t, func(a, b int) int { return a + b })
//
// # Shaping
//
// [WithBurst] sets how many tokens may accumulate while consumers are
// idle; a burst smaller than one deposit is raised to the deposit's
// token value. [WithGranularity] and [WithGranularityUnit] widen the atom of
// emission without changing the long-run rate; see the
// [github.com/adamwoolhether/throttler/rate] package.
//
// # Lifecycle
//
// Closing an input channel is the normal way to end throttling: the
// piper drains nothing further, closes its output, and closes the
// shared bucket. Because the bucket is shared, this also winds down
// every sibling output of the same factory. Callers wanting
// independent lifecycles use one factory per channel.
package throttle
