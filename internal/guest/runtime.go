package guest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Host is the bridge the guest's imports call into.
type Host interface {
	Export(dimension int, data string) error
	Peek() (string, bool)
	Import() (string, bool)
}

// Config tunes a Runtime.
type Config struct {
	// MemoryPages caps each instance's linear memory, in 64KiB pages.
	MemoryPages uint32
	Logger      *zap.Logger
}

// Exports looked up on every instance.
var startExports = []string{"__wbindgen_start", "_start", "main"}

const frameExport = "ncube_frame"

// Runtime compiles and instantiates guest payloads.
type Runtime struct {
	rt     wazero.Runtime
	host   Host
	logger *zap.Logger

	seq    int
	raised error
}

// New creates a runtime bound to host and registers the host modules.
func New(ctx context.Context, host Host, cfg Config) (*Runtime, error) {
	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryPages)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runtime{
		rt:     wazero.NewRuntimeWithConfig(ctx, rc),
		host:   host,
		logger: logger,
	}
	if err := r.registerHostModules(ctx); err != nil {
		_ = r.rt.Close(ctx)
		return nil, err
	}
	return r, nil
}

func (r *Runtime) registerHostModules(ctx context.Context) error {
	i32 := api.ValueTypeI32

	_, err := r.rt.NewHostModuleBuilder("wbg").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(r.throw), []api.ValueType{i32, i32}, nil).
		Export("__wbindgen_throw").
		Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate wbg host module: %w", err)
	}

	_, err = r.rt.NewHostModuleBuilder("ncube").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(r.exportData), []api.ValueType{i32, i32, i32}, nil).
		Export("export_to_data_file").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(r.dragDropData), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("get_drag_drop_data").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(r.signal), []api.ValueType{i32, i32}, nil).
		Export("signal").
		Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate ncube host module: %w", err)
	}
	return nil
}

// raise records err and unwinds the guest. wazero turns the panic into a
// call error; the recorded value is what callers see.
func (r *Runtime) raise(err error) {
	r.raised = err
	panic(err)
}

func (r *Runtime) takeRaised(callErr error) error {
	if r.raised != nil {
		err := r.raised
		r.raised = nil
		return err
	}
	return callErr
}

func (r *Runtime) throw(_ context.Context, m api.Module, stack []uint64) {
	ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	msg, ok := read(m, ptr, length)
	if !ok {
		r.raise(&Thrown{Message: fmt.Sprintf("guest threw with out-of-range message (%d+%d)", ptr, length)})
	}
	r.raise(&Thrown{Message: string(msg)})
}

func (r *Runtime) exportData(_ context.Context, m api.Module, stack []uint64) {
	dim := int(api.DecodeI32(stack[0]))
	ptr, length := api.DecodeU32(stack[1]), api.DecodeU32(stack[2])

	data, ok := read(m, ptr, length)
	if !ok {
		r.raise(&HostError{Func: "export_to_data_file", Err: errors.New("data out of range")})
	}
	if err := r.host.Export(dim, string(data)); err != nil {
		r.raise(&HostError{Func: "export_to_data_file", Err: err})
	}
}

// dragDropData copies pending drop data into the guest buffer. A payload
// larger than the buffer is left pending and its length returned so the
// guest can retry with enough room.
func (r *Runtime) dragDropData(_ context.Context, m api.Module, stack []uint64) {
	ptr, capacity := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])

	payload, ok := r.host.Peek()
	if !ok {
		stack[0] = api.EncodeI32(-1)
		return
	}
	if uint32(len(payload)) <= capacity {
		if mem := m.Memory(); mem == nil || !mem.Write(ptr, []byte(payload)) {
			r.raise(&HostError{Func: "get_drag_drop_data", Err: errors.New("buffer out of range")})
		}
		r.host.Import()
	}
	stack[0] = api.EncodeI32(int32(len(payload)))
}

func read(m api.Module, ptr, length uint32) ([]byte, bool) {
	mem := m.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, length)
}

func (r *Runtime) signal(_ context.Context, _ api.Module, stack []uint64) {
	r.raise(&Signal{Version: api.DecodeU32(stack[0]), Code: api.DecodeU32(stack[1])})
}

// Instantiate compiles wasm, instantiates it and runs its start export.
// The instance is returned even when the start export raises, so a benign
// control-flow exception leaves a usable guest behind.
func (r *Runtime) Instantiate(ctx context.Context, wasm []byte) (*Instance, error) {
	compiled, err := r.rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile guest: %w", err)
	}

	r.seq++
	name := fmt.Sprintf("guest-%d", r.seq)
	mod, err := r.rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return nil, r.takeRaised(fmt.Errorf("instantiate guest: %w", err))
	}

	inst := &Instance{name: name, mod: mod, runtime: r, frame: mod.ExportedFunction(frameExport)}
	r.logger.Debug("guest instantiated", zap.String("name", name), zap.Int("bytes", len(wasm)))

	for _, export := range startExports {
		fn := mod.ExportedFunction(export)
		if fn == nil {
			continue
		}
		if _, err := fn.Call(ctx); err != nil {
			return inst, r.takeRaised(fmt.Errorf("guest %s: %w", export, err))
		}
		break
	}
	return inst, nil
}

// Close releases every instance and the host modules.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Instance is one instantiated guest.
type Instance struct {
	name    string
	mod     api.Module
	frame   api.Function
	runtime *Runtime
}

// Name returns the module name the instance was registered under.
func (i *Instance) Name() string { return i.name }

// Animated reports whether the guest exports a per-frame hook.
func (i *Instance) Animated() bool { return i.frame != nil }

// Tick runs one guest frame. Guests without a frame export do nothing.
func (i *Instance) Tick(ctx context.Context) error {
	if i.frame == nil {
		return nil
	}
	if _, err := i.frame.Call(ctx); err != nil {
		return i.runtime.takeRaised(fmt.Errorf("guest %s: %w", frameExport, err))
	}
	return nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}
