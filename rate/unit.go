package rate

import (
	"fmt"
	"strings"
)

// Unit is a time unit that a rate is expressed against,
// e.g. 100 messages per Second.
type Unit string

const (
	Microsecond Unit = "microsecond"
	Millisecond Unit = "millisecond"
	Second      Unit = "second"
	Minute      Unit = "minute"
	Hour        Unit = "hour"
	Day         Unit = "day"
	// Month is exactly 31 days. Callers sensitive to calendar
	// months should not rely on it.
	Month Unit = "month"
)

// unitMillis maps each unit to its length in milliseconds.
var unitMillis = map[Unit]float64{
	Microsecond: 0.001,
	Millisecond: 1,
	Second:      1_000,
	Minute:      60_000,
	Hour:        3_600_000,
	Day:         86_400_000,
	Month:       2_678_400_000,
}

// unitOrder fixes the listing order for error messages and Units.
var unitOrder = []Unit{Microsecond, Millisecond, Second, Minute, Hour, Day, Month}

// Units returns all accepted time units, shortest first.
func Units() []Unit {
	return append([]Unit(nil), unitOrder...)
}

// Valid reports whether u is one of the accepted time units.
func (u Unit) Valid() bool {
	_, ok := unitMillis[u]
	return ok
}

// Millis returns the length of the unit in milliseconds.
// It returns 0 for an unknown unit.
func (u Unit) Millis() float64 {
	return unitMillis[u]
}

// ParseUnit converts a string such as "second" into a Unit.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("unknown time unit %q, must be one of: %s", s, unitList())
	}

	return u, nil
}

func unitList() string {
	names := make([]string, len(unitOrder))
	for i, u := range unitOrder {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}
