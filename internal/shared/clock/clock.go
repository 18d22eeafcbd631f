// Package clock abstracts the time operations the host schedules: the
// post-load notice timer and guest frame ticks. Production code uses
// Real(); tests drive a Fake with Advance.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is the subset of the time package the host depends on.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d. Stop on the returned Timer cancels a
	// pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a cancellable scheduled call.
type Timer struct {
	stop func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped a pending timer.
func (t *Timer) Stop() bool { return t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stop: timer.Stop}
}

// Fake is a deterministic Clock. Time only moves on Advance, which runs
// due callbacks synchronously in deadline order.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	fn       func()
	done     bool
}

// NewFake returns a Fake clock set to initial.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// AfterFunc registers fn to run once the clock passes now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := &waiter{deadline: f.current.Add(d), fn: fn}
	f.waiters = append(f.waiters, w)
	return &Timer{stop: func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if w.done {
			return false
		}
		w.done = true
		return true
	}}
}

// Pending returns the number of timers that have neither fired nor
// been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires every due timer.
// Callbacks run without the lock held and may schedule new timers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	now := f.current

	var due []*waiter
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		switch {
		case w.done:
		case !w.deadline.After(now):
			w.done = true
			due = append(due, w)
		default:
			kept = append(kept, w)
		}
	}
	f.waiters = kept
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, w := range due {
		w.fn()
	}
}
