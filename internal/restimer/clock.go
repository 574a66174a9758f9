package restimer

import "time"

// Clock is the time source of a Coordinator. AfterFunc schedules f to run once
// after d and returns a function that cancels it, reporting whether the call
// stopped f from running.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
