package ingestion

import (
	"math/rand/v2"
	"time"
)

// Scheduler runs f once after d has elapsed. Scheduled work cannot be cancelled.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules work on runtime timers.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Source is the randomness consumed by the simulator. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Int64N(n int64) int64
	Shuffle(n int, swap func(i, j int))
}

// NewRandomSource returns a Source seeded from the runtime's random generator.
func NewRandomSource() Source {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

var _ Source = (*rand.Rand)(nil)
