// Package eventloop runs callbacks one at a time on a single goroutine.
//
// Everything that touches a session's script VM, guest instance, bridge or
// document runs on that session's Loop, so none of those types carry locks.
// Blocking work (network fetches, archive extraction) runs elsewhere and
// posts its continuation back with Await.
package eventloop

import "sync"

// Loop is an unbounded FIFO of callbacks drained by Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a Loop. Call Run to start draining it.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and reports false once the loop has
// been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run drains the queue until Stop is called. Callbacks posted before Stop
// but not yet started are discarded.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			select {
			case <-l.quit:
				return
			default:
			}
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Stop ends Run after the current callback returns. It is safe to call
// more than once and from inside a callback.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.quit)
	})
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Len reports the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Await runs work on a new goroutine and posts cont with its result back
// onto the loop. If the loop stops first, cont is dropped.
func Await[T any](l *Loop, work func() (T, error), cont func(T, error)) {
	go func() {
		v, err := work()
		l.Post(func() { cont(v, err) })
	}()
}

// Sync runs fn on the loop and waits for it to finish. It reports false if
// the loop stopped before fn ran. It must not be called from the loop's own
// goroutine.
func (l *Loop) Sync(fn func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}
