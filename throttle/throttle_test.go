package throttle_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/adamwoolhether/throttler/rate"
	"github.com/adamwoolhether/throttler/throttle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewFactoryValidation(t *testing.T) {
	testCases := []struct {
		name   string
		rate   float64
		unit   rate.Unit
		opts   []throttle.Option
		expErr bool
	}{
		{
			name: "valid",
			rate: 10,
			unit: rate.Second,
		},
		{
			name: "valid with options",
			rate: 10,
			unit: rate.Second,
			opts: []throttle.Option{throttle.WithBurst(50), throttle.WithGranularity(5)},
		},
		{
			name:   "zero rate",
			rate:   0,
			unit:   rate.Second,
			expErr: true,
		},
		{
			name:   "negative rate",
			rate:   -1,
			unit:   rate.Second,
			expErr: true,
		},
		{
			name:   "unknown unit",
			rate:   10,
			unit:   "fortnight",
			expErr: true,
		},
		{
			name:   "negative burst",
			rate:   10,
			unit:   rate.Second,
			opts:   []throttle.Option{throttle.WithBurst(-1)},
			expErr: true,
		},
		{
			name:   "zero granularity",
			rate:   10,
			unit:   rate.Second,
			opts:   []throttle.Option{throttle.WithGranularity(0)},
			expErr: true,
		},
		{
			name:   "unknown granularity unit",
			rate:   10,
			unit:   rate.Second,
			opts:   []throttle.Option{throttle.WithGranularityUnit("parsec")},
			expErr: true,
		},
		{
			name:   "nil logger",
			rate:   10,
			unit:   rate.Second,
			opts:   []throttle.Option{throttle.WithLogger(nil)},
			expErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := throttle.NewFactory[int](tc.rate, tc.unit, tc.opts...)

			if tc.expErr {
				if err == nil {
					t.Error("exp err, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if f == nil {
				t.Fatal("exp non-nil factory")
			}
			f.Close()
		})
	}
}

func TestThrottleOrderAndClosePropagation(t *testing.T) {
	const n = 20

	in := make(chan int, n)
	for i := 0; i < n; i++ {
		in <- i
	}
	close(in)

	out, err := throttle.Chan(in, 10000, rate.Second, throttle.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	var got []int
	timeout := time.After(5 * time.Second)
	for {
		select {
		case v, ok := <-out:
			if !ok {
				if len(got) != n {
					t.Fatalf("exp %d values; got: %d", n, len(got))
				}
				for i, v := range got {
					if v != i {
						t.Fatalf("exp value %d at index %d; got: %d", i, i, v)
					}
				}
				return
			}
			got = append(got, v)
		case <-timeout:
			t.Fatalf("timed out after %d values", len(got))
		}
	}
}

// Ten tokens are deposited per second-long cycle at granularity 10:
// ten reads pass immediately, the eleventh blocks for the next cycle.
func TestThrottleGranularityWidening(t *testing.T) {
	in := make(chan int, 11)
	for i := 0; i < 11; i++ {
		in <- i
	}

	f, err := throttle.NewFactory[int](10, rate.Second,
		throttle.WithBurst(10),
		throttle.WithGranularity(10),
		throttle.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	defer f.Close()

	out := f.Throttle(in)

	for i := 0; i < 10; i++ {
		select {
		case <-out:
		case <-time.After(2 * time.Second):
			t.Fatalf("value %d not delivered from the first batch", i)
		}
	}

	select {
	case v := <-out:
		t.Fatalf("exp eleventh read to block; got: %d", v)
	case <-time.After(300 * time.Millisecond):
	}

	select {
	case <-out:
	case <-time.After(3 * time.Second):
		t.Fatal("eleventh value never delivered")
	}
}

// Closing one input of a shared factory winds down the sibling
// output as well: the bucket is shared, and so is its shutdown.
func TestThrottleSharedShutdown(t *testing.T) {
	f, err := throttle.NewFactory[string](10000, rate.Second, throttle.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	in1 := make(chan string, 1)
	in2 := make(chan string, 1)
	out1 := f.Throttle(in1)
	out2 := f.Throttle(in2)

	in1 <- "a"
	in2 <- "b"

	for _, out := range []<-chan string{out1, out2} {
		select {
		case <-out:
		case <-time.After(2 * time.Second):
			t.Fatal("value not delivered")
		}
	}

	close(in1)

	for i, out := range []<-chan string{out1, out2} {
		select {
		case _, ok := <-out:
			if ok {
				t.Errorf("out%d: exp closed channel; got a value", i+1)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("out%d: not closed after sibling input closed", i+1)
		}
	}
}

func TestFactoryClose(t *testing.T) {
	f, err := throttle.NewFactory[int](10, rate.Second, throttle.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	in := make(chan int)
	out := f.Throttle(in)

	f.Close()
	f.Close() // Close must be idempotent.

	select {
	case _, ok := <-out:
		if ok {
			t.Error("exp closed channel; got a value")
		}
	case <-time.After(2 * time.Second):
		t.Error("output not closed after factory close")
	}
}

func TestSetRate(t *testing.T) {
	f, err := throttle.NewFactory[int](100, rate.Second,
		throttle.WithBurst(50),
		throttle.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	defer f.Close()

	if got := f.Plan().TokenValue; got != 1 {
		t.Fatalf("exp token value 1; got: %d", got)
	}

	if err := f.SetRate(2000); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got := f.Plan().TokenValue; got != 20 {
		t.Errorf("exp token value 20; got: %d", got)
	}

	// 10000/s derives 100 tokens per deposit, beyond the bucket's 50.
	if err := f.SetRate(10000); !errors.Is(err, throttle.ErrCapacityExceeded) {
		t.Errorf("exp ErrCapacityExceeded; got: %v", err)
	}
	if got := f.Plan().TokenValue; got != 20 {
		t.Errorf("exp plan unchanged at 20; got: %d", got)
	}

	if err := f.SetRate(-5); err == nil {
		t.Error("exp err, got nil")
	}
	if !rate.IsFieldErrors(f.SetRate(-5)) {
		t.Error("exp FieldErrors for a negative rate")
	}
}

func TestChanValidationError(t *testing.T) {
	in := make(chan int)

	_, err := throttle.Chan(in, 0, rate.Second)
	if err == nil {
		t.Fatal("exp err, got nil")
	}
	if !rate.IsFieldErrors(err) {
		t.Errorf("exp FieldErrors through the wrap, got: %v", err)
	}
}
