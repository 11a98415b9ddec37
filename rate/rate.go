// Package rate converts a user-facing rate specification into the
// scalars that drive a token-bucket throttler: how often to deposit
// tokens, how many tokens each deposit is worth, and how large the
// bucket must be.
package rate

import (
	"fmt"
	"math"
	"time"
)

// minSleepMillis is the floor for the filler period. Below roughly
// 10ms the runtime timer jitter dominates, so shorter periods are
// traded for larger token deposits instead.
const minSleepMillis = 10

// Spec is a user-facing rate specification.
//
// Granularity widens the atom of emission: 1 shapes per message,
// larger values allow that many messages through back-to-back within
// a window without changing the long-run rate. GranularityUnit
// expresses the same thing as a time span; a granularity equal to
// the full rate unit disables intra-unit shaping entirely. At most
// one of the two should be set; GranularityUnit wins if both are.
type Spec struct {
	Rate            float64 `json:"rate"             validate:"gt=0"`
	Unit            Unit    `json:"unit"             validate:"timeunit"`
	Burst           int     `json:"burst"            validate:"gte=0"`
	Granularity     int     `json:"granularity"      validate:"omitempty,gte=1"`
	GranularityUnit Unit    `json:"granularity_unit" validate:"omitempty,timeunit"`
}

// Plan holds the scalars derived from a Spec. A Plan is immutable
// once derived.
type Plan struct {
	// Interval is the period between token deposits, never below 10ms.
	Interval time.Duration
	// TokenValue is the number of tokens deposited per interval.
	TokenValue int
	// Capacity bounds the outstanding tokens, and with it the
	// instantaneous burst. Always at least TokenValue, so a full
	// deposit is never silently dropped when no reader is active.
	Capacity int
}

// Derive validates s and computes its Plan.
//
// The chain runs in a fixed order: the provisional sleep is floored
// at 10ms first, and the token value is then recomputed from the
// floored sleep. That keeps the effective rate on target when the
// ideal period would have been below the floor.
func (s Spec) Derive() (Plan, error) {
	if err := Validate(s); err != nil {
		return Plan{}, err
	}

	perMilli := s.Rate / s.Unit.Millis()

	g := s.Granularity
	if s.GranularityUnit != "" {
		// Number of messages expected in one granularity unit.
		g = int(math.Round(s.GranularityUnit.Millis() * perMilli))
	}
	if g < 1 {
		g = 1
	}

	sleep := math.Max(float64(g)/perMilli, minSleepMillis)

	tokenValue := int(math.Round(sleep * perMilli))
	if tokenValue < g {
		tokenValue = g
	}

	sleepMillis := math.Round(sleep)
	if sleepMillis < 1 {
		sleepMillis = 1
	}

	capacity := s.Burst
	if capacity < tokenValue {
		capacity = tokenValue
	}

	return Plan{
		Interval:   time.Duration(sleepMillis) * time.Millisecond,
		TokenValue: tokenValue,
		Capacity:   capacity,
	}, nil
}

// String renders the spec for logs, e.g. "100/second".
func (s Spec) String() string {
	return fmt.Sprintf("%g/%s", s.Rate, s.Unit)
}
