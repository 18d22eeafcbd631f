package testutil

// WasmModule assembles small WebAssembly binaries for guest runtime tests.
// Imports must be declared before functions so function indices stay
// stable.
type WasmModule struct {
	types   []funcType
	imports []wasmImport
	funcs   []wasmFunc
	exports []wasmExport
	data    []wasmData
	memory  uint32
}

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
)

type funcType struct {
	params, results []byte
}

type wasmImport struct {
	module, name string
	typeIdx      uint32
}

type wasmFunc struct {
	typeIdx uint32
	locals  []byte
	body    []byte
}

type wasmExport struct {
	name string
	kind byte
	idx  uint32
}

type wasmData struct {
	offset uint32
	bytes  []byte
}

// NewWasmModule returns an empty module.
func NewWasmModule() *WasmModule {
	return &WasmModule{}
}

func (m *WasmModule) typeIndex(params, results []byte) uint32 {
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *WasmModule) Import(module, name string, params, results []byte) uint32 {
	if len(m.funcs) > 0 {
		panic("testutil: imports must precede functions")
	}
	m.imports = append(m.imports, wasmImport{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function with one local per entry of locals. body is the
// instruction stream without the trailing end opcode.
func (m *WasmModule) Func(params, results, locals []byte, body ...[]byte) uint32 {
	var code []byte
	for _, b := range body {
		code = append(code, b...)
	}
	m.funcs = append(m.funcs, wasmFunc{typeIdx: m.typeIndex(params, results), locals: locals, body: code})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Export exports function idx under name.
func (m *WasmModule) Export(name string, idx uint32) *WasmModule {
	m.exports = append(m.exports, wasmExport{name: name, kind: 0x00, idx: idx})
	return m
}

// Memory declares a linear memory of pages and exports it as "memory".
func (m *WasmModule) Memory(pages uint32) *WasmModule {
	m.memory = pages
	m.exports = append(m.exports, wasmExport{name: "memory", kind: 0x02, idx: 0})
	return m
}

// Data places bytes in memory at offset.
func (m *WasmModule) Data(offset uint32, b []byte) *WasmModule {
	m.data = append(m.data, wasmData{offset: offset, bytes: b})
	return m
}

// Bytes encodes the module.
func (m *WasmModule) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		sec := uleb(uint32(len(m.types)))
		for _, t := range m.types {
			sec = append(sec, 0x60)
			sec = append(sec, vec(t.params)...)
			sec = append(sec, vec(t.results)...)
		}
		out = section(out, 0x01, sec)
	}

	if len(m.imports) > 0 {
		sec := uleb(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec = append(sec, name(imp.module)...)
			sec = append(sec, name(imp.name)...)
			sec = append(sec, 0x00)
			sec = append(sec, uleb(imp.typeIdx)...)
		}
		out = section(out, 0x02, sec)
	}

	if len(m.funcs) > 0 {
		sec := uleb(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec = append(sec, uleb(f.typeIdx)...)
		}
		out = section(out, 0x03, sec)
	}

	if m.memory > 0 {
		sec := []byte{0x01, 0x00}
		sec = append(sec, uleb(m.memory)...)
		out = section(out, 0x05, sec)
	}

	if len(m.exports) > 0 {
		sec := uleb(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec = append(sec, name(e.name)...)
			sec = append(sec, e.kind)
			sec = append(sec, uleb(e.idx)...)
		}
		out = section(out, 0x07, sec)
	}

	if len(m.funcs) > 0 {
		sec := uleb(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body []byte
			body = append(body, uleb(uint32(len(f.locals)))...)
			for _, l := range f.locals {
				body = append(body, 0x01, l)
			}
			body = append(body, f.body...)
			body = append(body, 0x0b)
			sec = append(sec, uleb(uint32(len(body)))...)
			sec = append(sec, body...)
		}
		out = section(out, 0x0a, sec)
	}

	if len(m.data) > 0 {
		sec := uleb(uint32(len(m.data)))
		for _, d := range m.data {
			sec = append(sec, 0x00)
			sec = append(sec, I32Const(int32(d.offset))...)
			sec = append(sec, 0x0b)
			sec = append(sec, uleb(uint32(len(d.bytes)))...)
			sec = append(sec, d.bytes...)
		}
		out = section(out, 0x0b, sec)
	}

	return out
}

// Instructions.

func I32Const(v int32) []byte { return append([]byte{0x41}, sleb(v)...) }
func Call(idx uint32) []byte  { return append([]byte{0x10}, uleb(idx)...) }
func LocalGet(i uint32) []byte {
	return append([]byte{0x20}, uleb(i)...)
}
func LocalSet(i uint32) []byte {
	return append([]byte{0x21}, uleb(i)...)
}

// I32GeS compares the top two i32 values as signed integers.
func I32GeS() []byte { return []byte{0x4e} }

// If opens a block without a result; close it with End.
func If() []byte  { return []byte{0x04, 0x40} }
func End() []byte { return []byte{0x0b} }
func Drop() []byte {
	return []byte{0x1a}
}

func section(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(b []byte) []byte {
	return append(uleb(uint32(len(b))), b...)
}

func name(s string) []byte {
	return vec([]byte(s))
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
