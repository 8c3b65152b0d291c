package wasmtest

import (
	"encoding/binary"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/schema"
)

// Behavior selects what a guest's run export does.
type Behavior int

const (
	// Loop is the default script body: next/grid until either says stop.
	Loop Behavior = iota
	// IgnoreStop keeps calling grid after it returned nonzero.
	IgnoreStop
	// Trap executes unreachable.
	Trap
	// BadRow hands grid a pointer past the end of memory.
	BadRow
)

// Fixed addresses in guest memory.
const (
	NamesAddr   = 0x100
	TableAddr   = 0x400
	CountAddr   = 0x800
	CapAddr     = 0x804
	MessageAddr = 0x900
	HeapBase    = 0x1000
)

// Function indices; the three host imports come first.
const (
	fnNext uint32 = iota
	fnGrid
	fnWrite
	fnAlloc
	fnFree
	fnRun
)

// Guest describes a module honoring the livid contract as compiled for
// wasm32.
type Guest struct {
	Columns schema.Columns
	// Message is written before the first row when set.
	Message  string
	RowCap   uint32
	Behavior Behavior
	// NoCap omits the row_display_cap export.
	NoCap bool
}

// Build assembles the guest.
func (g Guest) Build() []byte {
	l := abi.Wasm32

	var names []byte
	addrs := make([]uint64, len(g.Columns))
	for i, c := range g.Columns {
		addrs[i] = NamesAddr + uint64(len(names))
		names = append(names, c.Name...)
		names = append(names, 0)
	}
	sizes := make([]byte, 8)
	binary.LittleEndian.PutUint32(sizes, uint32(len(g.Columns)))
	binary.LittleEndian.PutUint32(sizes[4:], g.RowCap)

	data := []Data{
		{Offset: NamesAddr, Bytes: names},
		{Offset: TableAddr, Bytes: abi.EncodeColumns(l, g.Columns, addrs)},
		{Offset: CountAddr, Bytes: sizes},
	}
	if g.Message != "" {
		data = append(data, Data{Offset: MessageAddr, Bytes: append([]byte(g.Message), 0)})
	}

	globals := []Global{
		{Init: HeapBase, Mutable: true},
		{Name: abi.SymColumns, Init: TableAddr},
		{Name: abi.SymColumnsCount, Init: CountAddr},
	}
	if !g.NoCap {
		globals = append(globals, Global{Name: abi.SymRowCap, Init: CapAddr})
	}
	const heap = 0

	alloc := new(Code).
		GlobalGet(heap).
		GlobalGet(heap).LocalGet(0).Op(OpI32Add).
		I32(7).Op(OpI32Add).I32(-8).Op(OpI32And).
		GlobalSet(heap)

	m := &Module{
		Types: []FuncType{
			{Params: []byte{I32}, Results: []byte{I32}},
			{Params: []byte{I32, I32}, Results: []byte{I32}},
			{Params: []byte{I32, I32}},
			{Params: []byte{I32}},
		},
		Imports: []Import{
			{Module: "livid", Name: "next", Type: 0},
			{Module: "livid", Name: "grid", Type: 1},
			{Module: "livid", Name: "write", Type: 2},
		},
		Funcs: []Func{
			{Name: abi.SymAlloc, Type: 0, Body: alloc.Bytes()},
			{Name: abi.SymFree, Type: 3},
			{Name: abi.SymRun, Type: 3, Locals: []byte{I32}, Body: g.run()},
		},
		Globals: globals,
		Data:    data,
		Pages:   1,
	}
	return m.Encode()
}

// run's param 0 is the api pointer, local 1 the current row.
func (g Guest) run() []byte {
	c := new(Code)
	if g.Behavior == Trap {
		return c.Op(OpUnreachable).Bytes()
	}
	if g.Message != "" {
		c.LocalGet(0).I32(MessageAddr).Call(fnWrite)
	}

	c.Op(OpLoop, BlockVoid)
	c.LocalGet(0).Call(fnNext).LocalTee(1).Op(OpI32Eqz).
		Op(OpIf, BlockVoid).Op(OpReturn).Op(OpEnd)

	switch g.Behavior {
	case IgnoreStop:
		c.LocalGet(0).LocalGet(1).Call(fnGrid).Op(OpDrop)
	case BadRow:
		c.LocalGet(0).I32(0x7ffffff0).Call(fnGrid).
			Op(OpIf, BlockVoid).Op(OpReturn).Op(OpEnd)
	default:
		c.LocalGet(0).LocalGet(1).Call(fnGrid).
			Op(OpIf, BlockVoid).Op(OpReturn).Op(OpEnd)
	}
	c.Br(0).Op(OpEnd)
	return c.Bytes()
}
