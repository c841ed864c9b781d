package binding

import "time"

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred adoptions.
type Clock interface {
	// AfterFunc runs f on its own goroutine after d. A nil Timer means the
	// callback could not be scheduled.
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the clock backed by time.AfterFunc.
func RealClock() Clock { return realClock{} }
