package loader

import (
	"context"
	"sync"
)

// RejectionError is the reason an activation was rejected. Message is the
// text the entry point rejected with; Cause is the Go error behind it when
// one is known.
type RejectionError struct {
	Message string
	Cause   error
}

func (e *RejectionError) Error() string { return e.Message }

func (e *RejectionError) Unwrap() error { return e.Cause }

// Reject wraps err as a RejectionError carrying its message.
func Reject(err error) *RejectionError {
	if rej, ok := err.(*RejectionError); ok {
		return rej
	}
	return &RejectionError{Message: err.Error(), Cause: err}
}

// Activation is the pending result of running an entry point. It settles
// exactly once; later Resolve or Reject calls are ignored.
type Activation struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewActivation returns an unsettled activation.
func NewActivation() *Activation {
	return &Activation{done: make(chan struct{})}
}

// Resolved returns an activation that already succeeded.
func Resolved() *Activation {
	a := NewActivation()
	a.Resolve()
	return a
}

// Rejected returns an activation that already failed with err.
func Rejected(err error) *Activation {
	a := NewActivation()
	a.Reject(err)
	return a
}

// Resolve settles the activation successfully.
func (a *Activation) Resolve() {
	a.once.Do(func() { close(a.done) })
}

// Reject settles the activation with err, wrapped as a *RejectionError.
func (a *Activation) Reject(err error) {
	a.once.Do(func() {
		a.err = Reject(err)
		close(a.done)
	})
}

// Done is closed once the activation settles.
func (a *Activation) Done() <-chan struct{} { return a.done }

// Err returns the rejection, or nil while pending or after success.
func (a *Activation) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Wait blocks until the activation settles or ctx ends.
func (a *Activation) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
