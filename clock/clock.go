// Package clock provides the injected time and randomness sources used
// by volatile functions (TODAY, NOW, RAND, RANDBETWEEN). Keeping both
// as interfaces, rather than calling time.Now/math/rand directly from
// the function library, is what lets evaluation stay pure and
// deterministic in tests.
package clock

import (
	"math/rand"
	"time"
)

// Clock returns the current instant in UTC milliseconds-since-epoch.
type Clock interface {
	NowMillis() int64
}

// Rand is the random number source RAND/RANDBETWEEN draw from. Kept an
// interface, same as Clock, so a reproducible evaluation pass can pin
// it to a seeded or fixed sequence. Ground: the teacher's
// RandomGenerator/DefaultRandomGenerator seam in builtin.go.
type Rand interface {
	Float64() float64
}

// SystemRand is the production Rand, backed by math/rand's global
// source.
type SystemRand struct{}

// Float64 returns a pseudo-random value in [0,1).
func (SystemRand) Float64() float64 { return rand.Float64() }

// FixedRand is a Rand that always returns the same value, for tests.
type FixedRand struct {
	Value float64
}

// Float64 returns the fixed value.
func (f FixedRand) Float64() float64 { return f.Value }

// System is the production Clock, backed by the wall clock.
type System struct{}

// NowMillis returns time.Now().UTC() in milliseconds since the epoch.
func (System) NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// Fixed is a Clock that always returns the same instant, for tests and
// for reproducible evaluation snapshots.
type Fixed struct {
	Millis int64
}

// NowMillis returns the fixed instant.
func (f Fixed) NowMillis() int64 { return f.Millis }
