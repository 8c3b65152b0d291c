// Package wasmtest assembles small core WebAssembly modules for tests, so
// the wasm backend can be exercised without a C toolchain.
package wasmtest

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
)

// Instructions used by the guests in this package.
const (
	OpUnreachable byte = 0x00
	OpLoop        byte = 0x03
	OpIf          byte = 0x04
	OpEnd         byte = 0x0b
	OpBr          byte = 0x0c
	OpReturn      byte = 0x0f
	OpCall        byte = 0x10
	OpDrop        byte = 0x1a
	OpLocalGet    byte = 0x20
	OpLocalSet    byte = 0x21
	OpLocalTee    byte = 0x22
	OpGlobalGet   byte = 0x23
	OpGlobalSet   byte = 0x24
	OpI32Const    byte = 0x41
	OpI32Eqz      byte = 0x45
	OpI32Add      byte = 0x6a
	OpI32And      byte = 0x71

	BlockVoid byte = 0x40
)

const (
	magic   = 0x6d736100
	version = 1

	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secCode     = 10
	secData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03
)

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Import is an imported function.
type Import struct {
	Module, Name string
	Type         uint32
}

// Func is a defined function. Body excludes the final end opcode.
type Func struct {
	Name   string // exported under this name when set
	Locals []byte
	Body   []byte
	Type   uint32
}

// Global is an i32 global initialised to a constant.
type Global struct {
	Name    string // exported under this name when set
	Init    int32
	Mutable bool
}

// Data is an active data segment in memory 0.
type Data struct {
	Bytes  []byte
	Offset uint32
}

// Module is a core module with at most one memory, exported as "memory".
type Module struct {
	Types   []FuncType
	Imports []Import
	Funcs   []Func
	Globals []Global
	Data    []Data
	Pages   uint32
}

// Encode returns the module's binary encoding. Function indices count
// imports first.
func (m *Module) Encode() []byte {
	var out writer
	out.u32le(magic)
	out.u32le(version)

	var sec writer
	sec.u32(uint32(len(m.Types)))
	for _, t := range m.Types {
		sec.byte(0x60)
		sec.vec(t.Params)
		sec.vec(t.Results)
	}
	out.section(secType, &sec)

	if len(m.Imports) > 0 {
		sec = writer{}
		sec.u32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.byte(kindFunc)
			sec.u32(imp.Type)
		}
		out.section(secImport, &sec)
	}

	sec = writer{}
	sec.u32(uint32(len(m.Funcs)))
	for _, f := range m.Funcs {
		sec.u32(f.Type)
	}
	out.section(secFunction, &sec)

	if m.Pages > 0 {
		sec = writer{}
		sec.u32(1)
		sec.byte(0x00)
		sec.u32(m.Pages)
		out.section(secMemory, &sec)
	}

	if len(m.Globals) > 0 {
		sec = writer{}
		sec.u32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.byte(I32)
			if g.Mutable {
				sec.byte(1)
			} else {
				sec.byte(0)
			}
			sec.byte(OpI32Const)
			sec.s32(g.Init)
			sec.byte(OpEnd)
		}
		out.section(secGlobal, &sec)
	}

	var exports writer
	n := uint32(0)
	if m.Pages > 0 {
		exports.name("memory")
		exports.byte(kindMemory)
		exports.u32(0)
		n++
	}
	for i, f := range m.Funcs {
		if f.Name != "" {
			exports.name(f.Name)
			exports.byte(kindFunc)
			exports.u32(uint32(len(m.Imports) + i))
			n++
		}
	}
	for i, g := range m.Globals {
		if g.Name != "" {
			exports.name(g.Name)
			exports.byte(kindGlobal)
			exports.u32(uint32(i))
			n++
		}
	}
	sec = writer{}
	sec.u32(n)
	sec.byte(exports.bytes()...)
	out.section(secExport, &sec)

	sec = writer{}
	sec.u32(uint32(len(m.Funcs)))
	for _, f := range m.Funcs {
		var body writer
		if len(f.Locals) == 0 {
			body.u32(0)
		} else {
			body.u32(uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body.u32(1)
				body.byte(l)
			}
		}
		body.byte(f.Body...)
		body.byte(OpEnd)
		sec.vec(body.bytes())
	}
	out.section(secCode, &sec)

	if len(m.Data) > 0 {
		sec = writer{}
		sec.u32(uint32(len(m.Data)))
		for _, d := range m.Data {
			sec.u32(0)
			sec.byte(OpI32Const)
			sec.s32(int32(d.Offset))
			sec.byte(OpEnd)
			sec.vec(d.Bytes)
		}
		out.section(secData, &sec)
	}
	return out.bytes()
}

// Code builds an instruction sequence.
type Code struct {
	w writer
}

func (c *Code) Op(op ...byte) *Code { c.w.byte(op...); return c }

func (c *Code) I32(v int32) *Code { c.w.byte(OpI32Const); c.w.s32(v); return c }

func (c *Code) Call(fn uint32) *Code { c.w.byte(OpCall); c.w.u32(fn); return c }

func (c *Code) LocalGet(i uint32) *Code { c.w.byte(OpLocalGet); c.w.u32(i); return c }

func (c *Code) LocalTee(i uint32) *Code { c.w.byte(OpLocalTee); c.w.u32(i); return c }

func (c *Code) GlobalGet(i uint32) *Code { c.w.byte(OpGlobalGet); c.w.u32(i); return c }

func (c *Code) GlobalSet(i uint32) *Code { c.w.byte(OpGlobalSet); c.w.u32(i); return c }

func (c *Code) Br(depth uint32) *Code { c.w.byte(OpBr); c.w.u32(depth); return c }

func (c *Code) Bytes() []byte { return append([]byte(nil), c.w.bytes()...) }
