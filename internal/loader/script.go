package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/resource"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ScriptConfig tunes the script runtime.
type ScriptConfig struct {
	// Timeout bounds each call into the script.
	Timeout time.Duration
}

// DefaultScriptConfig returns the default script limits.
func DefaultScriptConfig() ScriptConfig {
	return ScriptConfig{Timeout: 30 * time.Second}
}

// ScriptLoader evaluates loader scripts as modules in a goja runtime and
// uses their default export as the entry point.
//
// The runtime is not safe for concurrent use; callers run it on the
// session's event loop.
type ScriptLoader struct {
	env    Env
	config ScriptConfig
	vm     *goja.Runtime
	logger *zap.Logger

	// ctx is the context of the script call in progress.
	ctx context.Context

	// lastGuestErr is the Go error behind the most recent host.instantiate
	// rejection, used to recover the typed cause of a script rejection.
	lastGuestErr error
}

// NewScriptLoader creates a loader with a fresh runtime.
func NewScriptLoader(env Env, config ScriptConfig) *ScriptLoader {
	if config.Timeout <= 0 {
		config.Timeout = DefaultScriptConfig().Timeout
	}
	l := &ScriptLoader{
		env:    env,
		config: config,
		vm:     goja.New(),
		logger: env.logger().With(zap.String("component", "script")),
		ctx:    context.Background(),
	}
	l.setupGlobals()
	return l
}

// setupGlobals configures the browser-like environment scripts expect.
func (l *ScriptLoader) setupGlobals() {
	vm := l.vm
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())
	vm.Set("window", vm.GlobalObject())

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, l.makeConsoleFunc(level))
	}
	vm.Set("console", console)

	host := vm.NewObject()
	_ = host.Set("instantiate", l.instantiateFunc)
	vm.Set("host", host)

	vm.Set("export_to_data_file", l.exportFunc)
	vm.Set("get_drag_drop_data", l.importFunc)
}

func (l *ScriptLoader) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		switch level {
		case "error":
			l.logger.Error(msg)
		case "warn":
			l.logger.Warn(msg)
		case "debug":
			l.logger.Debug(msg)
		default:
			l.logger.Info(msg)
		}
		return goja.Undefined()
	}
}

// instantiateFunc backs host.instantiate(ref). It returns a promise that
// settles before the call returns.
func (l *ScriptLoader) instantiateFunc(call goja.FunctionCall) goja.Value {
	promise, resolve, reject := l.vm.NewPromise()
	ref := call.Argument(0).String()

	if err := l.env.instantiate(l.ctx, ref); err != nil {
		l.lastGuestErr = err
		reject(l.vm.NewGoError(err))
	} else {
		resolve(goja.Undefined())
	}
	return l.vm.ToValue(promise)
}

func (l *ScriptLoader) exportFunc(call goja.FunctionCall) goja.Value {
	dimension := int(call.Argument(0).ToInteger())
	data := call.Argument(1).String()
	if err := l.env.Bridge.Export(dimension, data); err != nil {
		panic(l.vm.NewGoError(err))
	}
	return goja.Undefined()
}

func (l *ScriptLoader) importFunc(goja.FunctionCall) goja.Value {
	data, ok := l.env.Bridge.Import()
	if !ok {
		return goja.Null()
	}
	return l.vm.ToValue(data)
}

// guard interrupts the runtime when the timeout passes or ctx ends. The
// returned func must be called when the script call finishes.
func (l *ScriptLoader) guard(ctx context.Context) func() {
	l.ctx = ctx
	timer := time.AfterFunc(l.config.Timeout, func() {
		l.vm.Interrupt("execution timeout exceeded")
	})
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			l.vm.Interrupt("context cancelled")
		case <-stop:
		}
	}()
	return func() {
		timer.Stop()
		close(stop)
		l.vm.ClearInterrupt()
		l.ctx = context.Background()
	}
}

// Load implements Loader.
func (l *ScriptLoader) Load(ctx context.Context, script resource.Handle) (EntryPoint, error) {
	src, _, ok := l.env.Store.Resolve(script.Ref)
	if !ok {
		return nil, fmt.Errorf("load %s: resource not found", script.Ref)
	}

	release := l.guard(ctx)
	val, err := l.vm.RunScript(script.Ref, wrapModule(string(src), script.Ref))
	release()
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", script.Ref, err)
	}

	mod := val.ToObject(l.vm)
	fn, ok := goja.AssertFunction(mod.Get("default"))
	if !ok {
		return nil, fmt.Errorf("evaluate %s: default export is not a function", script.Ref)
	}

	l.logger.Debug("loader script evaluated",
		zap.String("ref", script.Ref),
		zap.Int("bytes", len(src)))
	return &scriptEntry{loader: l, fn: fn}, nil
}

type scriptEntry struct {
	loader *ScriptLoader
	fn     goja.Callable
}

// Activate calls the default export with the payload reference.
func (e *scriptEntry) Activate(ctx context.Context, payload resource.Handle) *Activation {
	l := e.loader
	l.lastGuestErr = nil

	release := l.guard(ctx)
	result, err := e.fn(goja.Undefined(), l.vm.ToValue(payload.Ref))
	release()
	if err != nil {
		return Rejected(l.rejection(err))
	}

	p, ok := result.Export().(*goja.Promise)
	if !ok {
		return Resolved()
	}

	switch p.State() {
	case goja.PromiseStateFulfilled:
		return Resolved()
	case goja.PromiseStateRejected:
		return Rejected(l.rejectionValue(p.Result()))
	}

	act := NewActivation()
	then, ok := goja.AssertFunction(result.ToObject(l.vm).Get("then"))
	if !ok {
		return Rejected(errors.New("entry point returned a promise without then"))
	}
	onFulfilled := l.vm.ToValue(func(goja.FunctionCall) goja.Value {
		act.Resolve()
		return goja.Undefined()
	})
	onRejected := l.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		act.Reject(l.rejectionValue(call.Argument(0)))
		return goja.Undefined()
	})
	if _, err := then(result, onFulfilled, onRejected); err != nil {
		return Rejected(l.rejection(err))
	}
	return act
}

// rejection converts an error returned from a script call.
func (l *ScriptLoader) rejection(err error) *RejectionError {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return l.rejectionValue(exc.Value())
	}
	return &RejectionError{Message: err.Error(), Cause: err}
}

// rejectionValue converts a rejected or thrown JavaScript value. Error
// objects contribute their message; anything else its string form.
func (l *ScriptLoader) rejectionValue(v goja.Value) *RejectionError {
	msg := ""
	if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		msg = v.String()
		if obj, ok := v.(*goja.Object); ok {
			if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
				msg = m.String()
			}
		}
	}

	rej := &RejectionError{Message: msg}
	if l.lastGuestErr != nil && l.lastGuestErr.Error() == msg {
		rej.Cause = l.lastGuestErr
	}
	return rej
}
