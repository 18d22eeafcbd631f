package guest

import "fmt"

// Signal codes understood by the host.
const (
	SignalVersion     uint32 = 1
	SignalControlFlow uint32 = 1
)

// Thrown is an exception raised by the guest through __wbindgen_throw.
type Thrown struct {
	Message string
}

func (e *Thrown) Error() string { return e.Message }

// Signal is a structured, versioned control signal raised by the guest.
type Signal struct {
	Version uint32
	Code    uint32
}

func (e *Signal) Error() string {
	return fmt.Sprintf("guest signal v%d code %d", e.Version, e.Code)
}

// HostError wraps a failure inside a host function called by the guest.
type HostError struct {
	Func string
	Err  error
}

func (e *HostError) Error() string { return fmt.Sprintf("host %s: %v", e.Func, e.Err) }

func (e *HostError) Unwrap() error { return e.Err }
