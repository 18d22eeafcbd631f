// Package loader turns a materialized loader script into an entry point
// and runs it against the guest payload.
//
// Three loaders exist. ScriptLoader evaluates the release's JavaScript
// glue in a goja runtime, the way a browser would import it. DirectLoader
// skips the script and instantiates the payload itself. StaticLoader
// wraps an entry function compiled into the binary.
package loader

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/ncube-web/internal/guest"
	"github.com/GriffinCanCode/ncube-web/internal/resource"
	"go.uber.org/zap"
)

// Loader resolves a loader script into its entry point.
type Loader interface {
	Load(ctx context.Context, script resource.Handle) (EntryPoint, error)
}

// EntryPoint starts the guest with its payload.
type EntryPoint interface {
	Activate(ctx context.Context, payload resource.Handle) *Activation
}

// Instantiator runs guest payloads. *guest.Runtime implements it.
type Instantiator interface {
	Instantiate(ctx context.Context, wasm []byte) (*guest.Instance, error)
}

// Bridge is the host surface exposed to loader scripts.
type Bridge interface {
	Export(dimension int, data string) error
	Import() (string, bool)
}

// Env is what loaders need from their session.
type Env struct {
	Store  *resource.Store
	Guest  Instantiator
	Bridge Bridge
	Logger *zap.Logger
	// OnInstance receives every guest instance created, including one whose
	// start function raised.
	OnInstance func(*guest.Instance)
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// instantiate resolves ref and instantiates it.
func (e Env) instantiate(ctx context.Context, ref string) error {
	wasm, _, ok := e.Store.Resolve(ref)
	if !ok {
		return fmt.Errorf("resource %s not found", ref)
	}
	inst, err := e.Guest.Instantiate(ctx, wasm)
	if inst != nil && e.OnInstance != nil {
		e.OnInstance(inst)
	}
	return err
}

// DirectLoader instantiates the payload without evaluating the script.
type DirectLoader struct {
	Env Env
}

// Load implements Loader. The script only has to exist.
func (l DirectLoader) Load(_ context.Context, script resource.Handle) (EntryPoint, error) {
	if _, _, ok := l.Env.Store.Resolve(script.Ref); !ok {
		return nil, fmt.Errorf("load %s: resource not found", script.Ref)
	}
	return EntryFunc(func(ctx context.Context, payload resource.Handle) *Activation {
		if err := l.Env.instantiate(ctx, payload.Ref); err != nil {
			return Rejected(err)
		}
		return Resolved()
	}), nil
}

// EntryFunc adapts a function to EntryPoint.
type EntryFunc func(ctx context.Context, payload resource.Handle) *Activation

// Activate implements EntryPoint.
func (f EntryFunc) Activate(ctx context.Context, payload resource.Handle) *Activation {
	return f(ctx, payload)
}

// StaticLoader returns a fixed entry point regardless of the script, for
// builds that ship the loader compiled in.
type StaticLoader struct {
	Entry EntryPoint
}

// Load implements Loader.
func (l StaticLoader) Load(context.Context, resource.Handle) (EntryPoint, error) {
	if l.Entry == nil {
		return nil, fmt.Errorf("static loader has no entry point")
	}
	return l.Entry, nil
}
