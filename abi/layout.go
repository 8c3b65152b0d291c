package abi

import (
	"encoding/binary"
	"unsafe"
)

// Field sizes shared by every layout.
const (
	// SlotSize is the size of one value slot in a row. Every cell type,
	// including a text pointer on 32-bit targets, fits in one slot.
	SlotSize = 8
	// CellTypeSize is the size of struct column.cell_type (int32_t).
	CellTypeSize = 4
	// GridWidthSize is the size of struct column.grid_width (int16_t).
	GridWidthSize = 2
	// EmptyFlagSize is the size of one bool in the row's empty block.
	EmptyFlagSize = 1
	// RowAlign is the alignment of struct row.
	RowAlign = 8
)

// Limits applied to module-declared data before the host trusts it.
const (
	MaxColumns    = 4096
	MaxNameLength = 4096
	DefaultRowCap = 1000
)

// Layout describes the target-dependent part of the binary contract:
// pointer width and byte order. Everything else is fixed.
type Layout struct {
	Order   binary.ByteOrder
	Name    string
	PtrSize uint32
}

var (
	// Native is the layout of modules loaded into the host process.
	Native = Layout{Name: "native", PtrSize: uint32(unsafe.Sizeof(uintptr(0))), Order: binary.NativeEndian}
	// Wasm32 is the layout of modules compiled for wasm32.
	Wasm32 = Layout{Name: "wasm32", PtrSize: 4, Order: binary.LittleEndian}
)

// struct column

func (l Layout) ColumnNameOffset() uint32  { return 0 }
func (l Layout) ColumnTypeOffset() uint32  { return l.PtrSize }
func (l Layout) ColumnWidthOffset() uint32 { return l.PtrSize + CellTypeSize }

// ColumnSize is sizeof(struct column), padded to its alignment.
func (l Layout) ColumnSize() uint32 {
	return alignUp(l.PtrSize+CellTypeSize+GridWidthSize, max(l.PtrSize, CellTypeSize))
}

// struct row

// SlotOffset is the offset of column i's value slot.
func (l Layout) SlotOffset(i int) uint32 { return uint32(i) * SlotSize }

// EmptyOffset is the offset of column i's empty flag in a row of n columns.
func (l Layout) EmptyOffset(n, i int) uint32 { return uint32(n)*SlotSize + uint32(i)*EmptyFlagSize }

// RowSize is sizeof(struct row) for n columns.
func (l Layout) RowSize(n int) uint32 {
	return alignUp(uint32(n)*(SlotSize+EmptyFlagSize), RowAlign)
}

// struct api

func (l Layout) APINextOffset() uint32  { return 0 }
func (l Layout) APIGridOffset() uint32  { return l.PtrSize }
func (l Layout) APIWriteOffset() uint32 { return 2 * l.PtrSize }
func (l Layout) APIHostOffset() uint32  { return 3 * l.PtrSize }
func (l Layout) APISize() uint32        { return 4 * l.PtrSize }

// Ptr decodes a pointer-sized value from b.
func (l Layout) Ptr(b []byte) uint64 {
	if l.PtrSize == 4 {
		return uint64(l.Order.Uint32(b))
	}
	return l.Order.Uint64(b)
}

// PutPtr encodes a pointer-sized value into b.
func (l Layout) PutPtr(b []byte, v uint64) {
	if l.PtrSize == 4 {
		l.Order.PutUint32(b, uint32(v))
		return
	}
	l.Order.PutUint64(b, v)
}

func alignUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
