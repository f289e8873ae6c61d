package engine

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current instant. Nothing in the engine reads the system clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// RandomSource yields values in [0, 1). Used for the XP surge roll.
type RandomSource interface {
	Float64() float64
}

type defaultRandom struct{}

func (defaultRandom) Float64() float64 { return rand.Float64() }

// DefaultRandom returns the process-wide random source.
func DefaultRandom() RandomSource { return defaultRandom{} }

// FixedRandom always returns the same value. FixedRandom(0) forces every surge,
// FixedRandom(1) disables them.
type FixedRandom float64

func (f FixedRandom) Float64() float64 { return float64(f) }

// DayLayout is the storage format of day keys.
const DayLayout = "2006-01-02"

// DayOf returns the day key for t. The day rolls over at ResetHour in the
// rules' location, so 02:00 with a 04:00 reset belongs to the previous day.
func (r Rules) DayOf(t time.Time) string {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Add(-time.Duration(r.ResetHour) * time.Hour).Format(DayLayout)
}

// DaysBetween returns to-from in whole days. ok is false if either key is malformed.
func DaysBetween(from, to string) (days int, ok bool) {
	a, err := time.Parse(DayLayout, from)
	if err != nil {
		return 0, false
	}
	b, err := time.Parse(DayLayout, to)
	if err != nil {
		return 0, false
	}
	return int(b.Sub(a).Hours() / 24), true
}
