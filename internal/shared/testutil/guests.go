package testutil

// Guest payloads shared by the guest, loader, bootstrap and session tests.

// NoopGuest exports an empty _start and nothing else.
func NoopGuest() []byte {
	m := NewWasmModule()
	start := m.Func(nil, nil, nil)
	m.Export("_start", start)
	return m.Bytes()
}

// ThrowingGuest calls wbg.__wbindgen_throw with msg from its start function.
func ThrowingGuest(msg string) []byte {
	m := NewWasmModule()
	throw := m.Import("wbg", "__wbindgen_throw", []byte{I32, I32}, nil)
	start := m.Func(nil, nil, nil,
		I32Const(0),
		I32Const(int32(len(msg))),
		Call(throw),
	)
	m.Memory(1).Data(0, []byte(msg))
	m.Export("__wbindgen_start", start)
	return m.Bytes()
}

// SignalGuest raises ncube.signal(version, code) from its start function.
func SignalGuest(version, code int32) []byte {
	m := NewWasmModule()
	signal := m.Import("ncube", "signal", []byte{I32, I32}, nil)
	start := m.Func(nil, nil, nil,
		I32Const(version),
		I32Const(code),
		Call(signal),
	)
	m.Export("main", start)
	return m.Bytes()
}

// Echo guest memory layout.
const (
	EchoBufferOffset = 1024
	EchoBufferSize   = 256
	EchoDimension    = 4
)

// EchoGuest starts cleanly and, on every ncube_frame call, pulls pending
// drop data (up to EchoBufferSize bytes) and exports it back as an
// EchoDimension cube file.
func EchoGuest() []byte {
	m := NewWasmModule()
	get := m.Import("ncube", "get_drag_drop_data", []byte{I32, I32}, []byte{I32})
	export := m.Import("ncube", "export_to_data_file", []byte{I32, I32, I32}, nil)

	start := m.Func(nil, nil, nil)
	frame := m.Func(nil, nil, []byte{I32},
		I32Const(EchoBufferOffset),
		I32Const(EchoBufferSize),
		Call(get),
		LocalSet(0),
		LocalGet(0),
		I32Const(0),
		I32GeS(),
		If(),
		I32Const(EchoDimension),
		I32Const(EchoBufferOffset),
		LocalGet(0),
		Call(export),
		End(),
	)
	m.Memory(1)
	m.Export("__wbindgen_start", start)
	m.Export("ncube_frame", frame)
	return m.Bytes()
}
