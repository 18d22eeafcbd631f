package bootstrap

import (
	"errors"
	"strings"

	"github.com/GriffinCanCode/ncube-web/internal/guest"
	"github.com/GriffinCanCode/ncube-web/internal/loader"
)

// Sentinel prefixes the rejection message a guest uses to exit its start
// function on purpose. Matching it is a compatibility shim for guests that
// predate the ncube.signal import.
const Sentinel = "Using exceptions for control flow, don't mind me. This isn't actually an error!"

// Outcome classifies a settled activation.
type Outcome int

const (
	Resolved Outcome = iota
	Benign
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Benign:
		return "benign"
	default:
		return "failed"
	}
}

// BootstrapError is a genuine guest initialization failure.
type BootstrapError struct {
	Err error
}

func (e *BootstrapError) Error() string { return "bootstrap failed: " + e.Err.Error() }

func (e *BootstrapError) Unwrap() error { return e.Err }

// Classify decides what an activation result means. A versioned control
// signal or a rejection message starting with Sentinel is Benign.
func Classify(err error) Outcome {
	if err == nil {
		return Resolved
	}

	var sig *guest.Signal
	if errors.As(err, &sig) && sig.Version == guest.SignalVersion && sig.Code == guest.SignalControlFlow {
		return Benign
	}

	msg := err.Error()
	var rej *loader.RejectionError
	if errors.As(err, &rej) {
		msg = rej.Message
	}
	if strings.HasPrefix(msg, Sentinel) {
		return Benign
	}
	return Failed
}

// Reconcile classifies err and returns a *BootstrapError for failures.
func Reconcile(err error) (Outcome, error) {
	outcome := Classify(err)
	if outcome == Failed {
		return outcome, &BootstrapError{Err: err}
	}
	return outcome, nil
}
