package abi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/internal/memtest"
	"github.com/wippyai/livid/schema"
)

func TestLayout_Offsets(t *testing.T) {
	wasm := Wasm32
	assert.Equal(t, uint32(0), wasm.ColumnNameOffset())
	assert.Equal(t, uint32(4), wasm.ColumnTypeOffset())
	assert.Equal(t, uint32(8), wasm.ColumnWidthOffset())
	assert.Equal(t, uint32(12), wasm.ColumnSize())
	assert.Equal(t, uint32(16), wasm.APISize())
	assert.Equal(t, uint32(12), wasm.APIHostOffset())

	wide := Layout{Name: "lp64", PtrSize: 8, Order: binary.LittleEndian}
	assert.Equal(t, uint32(8), wide.ColumnTypeOffset())
	assert.Equal(t, uint32(12), wide.ColumnWidthOffset())
	assert.Equal(t, uint32(16), wide.ColumnSize())
	assert.Equal(t, uint32(32), wide.APISize())
	assert.Equal(t, uint32(8), wide.APIGridOffset())
	assert.Equal(t, uint32(16), wide.APIWriteOffset())

	tests := []struct{ n, size int }{{1, 16}, {3, 32}, {8, 72}, {9, 88}}
	for _, tt := range tests {
		assert.Equal(t, uint32(tt.size), wasm.RowSize(tt.n), "RowSize(%d)", tt.n)
	}
	assert.Equal(t, uint32(24), wasm.EmptyOffset(3, 0))
	assert.Equal(t, uint32(26), wasm.EmptyOffset(3, 2))
}

func TestLayout_Ptr(t *testing.T) {
	b := make([]byte, 8)
	Wasm32.PutPtr(b, 0xdeadbeef)
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde, 0, 0, 0, 0}, b)
	assert.Equal(t, uint64(0xdeadbeef), Wasm32.Ptr(b))
}

func TestReadModuleInfo(t *testing.T) {
	for _, l := range []Layout{Wasm32, {Name: "lp64", PtrSize: 8, Order: binary.LittleEndian}} {
		t.Run(l.Name, func(t *testing.T) {
			mem := memtest.New(1 << 16)
			want := schema.Columns{
				{Name: "a", Index: 0, Type: schema.Long, Width: schema.Auto()},
				{Name: "b", Index: 1, Type: schema.Double, Width: schema.Fixed(6)},
				{Name: "c", Index: 2, Type: schema.Text, Width: schema.Hidden()},
			}
			names := []uint64{0x100, 0x110, 0x120}
			for i, c := range want {
				mem.PutString(names[i], c.Name)
			}
			require.NoError(t, mem.Write(0x200, EncodeColumns(l, want, names)))

			count := make([]byte, l.PtrSize)
			l.PutPtr(count, 3)
			require.NoError(t, mem.Write(0x300, count))
			rowCap := make([]byte, l.PtrSize)
			l.PutPtr(rowCap, 2)
			require.NoError(t, mem.Write(0x308, rowCap))

			info, err := ReadModuleInfo(mem, l, 0x200, 0x300, 0x308)
			require.NoError(t, err)
			assert.Equal(t, want, info.Columns)
			assert.Equal(t, 2, info.RowCap)

			info, err = ReadModuleInfo(mem, l, 0x200, 0x300, 0)
			require.NoError(t, err)
			assert.Equal(t, DefaultRowCap, info.RowCap)
		})
	}
}

func TestReadColumns_Rejects(t *testing.T) {
	l := Wasm32
	mem := memtest.New(1 << 12)
	mem.PutString(0x100, "a")

	_, err := ReadColumns(mem, l, 0, 1)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNilPointer})

	_, err = ReadColumns(mem, l, 0x200, 0)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData})

	_, err = ReadColumns(mem, l, 0x200, MaxColumns+1)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData})

	entry := make([]byte, l.ColumnSize())
	l.PutPtr(entry, 0x100)
	l.Order.PutUint32(entry[l.ColumnTypeOffset():], 7)
	require.NoError(t, mem.Write(0x200, entry))
	_, err = ReadColumns(mem, l, 0x200, 1)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidEnum})

	l.PutPtr(entry, 0)
	l.Order.PutUint32(entry[l.ColumnTypeOffset():], 0)
	require.NoError(t, mem.Write(0x200, entry))
	_, err = ReadColumns(mem, l, 0x200, 1)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNilPointer})

	_, err = ReadColumns(mem, l, 0xff0, 4)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseABI, Kind: errors.KindOutOfBounds})
}

func TestReadColumns_NameLength(t *testing.T) {
	l := Wasm32
	mem := memtest.New(1 << 14)
	entry := make([]byte, l.ColumnSize())
	l.PutPtr(entry, 0x100)
	require.NoError(t, mem.Write(0x80, entry))

	mem.PutString(0x100, strings.Repeat("n", MaxNameLength))
	cols, err := ReadColumns(mem, l, 0x80, 1)
	require.NoError(t, err)
	assert.Len(t, cols[0].Name, MaxNameLength)

	mem.PutString(0x100, strings.Repeat("n", MaxNameLength+1))
	_, err = ReadColumns(mem, l, 0x80, 1)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData})
}

func TestEncodeRow_Image(t *testing.T) {
	l := Wasm32
	row := schema.Row{schema.LongCell(1), schema.TextCell("hi"), schema.EmptyCell(schema.Double)}
	img := EncodeRow(l, 0x1000, row)

	require.Len(t, img, int(l.RowSize(3))+3)
	assert.Equal(t, uint64(1), l.Order.Uint64(img[0:]))
	assert.Equal(t, uint64(0x1000+32), l.Ptr(img[8:]))
	assert.Equal(t, uint64(0), l.Order.Uint64(img[16:]))
	assert.Equal(t, []byte{0, 0, 1}, img[24:27])
	assert.Equal(t, []byte("hi\x00"), img[32:])
}

func TestBridge_RoundTrip(t *testing.T) {
	mem := memtest.New(1 << 16)
	b := NewBridge(mem, mem, Wasm32)
	cols := schema.Columns{
		{Name: "n", Type: schema.Long},
		{Name: "t", Type: schema.Time},
		{Name: "d", Type: schema.Double},
		{Name: "s", Type: schema.Text},
	}

	rows := []schema.Row{
		{schema.LongCell(-3), schema.TimeCell(1700000000), schema.DoubleCell(2.5), schema.TextCell("héllo")},
		{schema.EmptyCell(schema.Long), schema.EmptyCell(schema.Time), schema.EmptyCell(schema.Double), schema.EmptyCell(schema.Text)},
		{schema.LongCell(0), schema.TimeCell(0), schema.DoubleCell(0), schema.TextCell("")},
	}
	for i, row := range rows {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			addr, err := b.PutRow(row)
			require.NoError(t, err)
			got, err := b.GetRow(addr, cols)
			require.NoError(t, err)
			assert.True(t, row.Equal(got), "got %v want %v", got, row)
		})
	}
}

func TestBridge_Grows(t *testing.T) {
	mem := memtest.New(1 << 16)
	b := NewBridge(mem, mem, Wasm32)
	cols := schema.Columns{{Name: "s", Type: schema.Text}}

	first, err := b.PutRow(schema.Row{schema.TextCell("x")})
	require.NoError(t, err)
	again, err := b.PutRow(schema.Row{schema.TextCell("y")})
	require.NoError(t, err)
	assert.Equal(t, first, again, "buffer is reused")

	long := string(bytes.Repeat([]byte("z"), 1000))
	addr, err := b.PutRow(schema.Row{schema.TextCell(long)})
	require.NoError(t, err)
	assert.NotEqual(t, first, addr)
	assert.Equal(t, []uint64{first}, mem.Freed)

	got, err := b.GetRow(addr, cols)
	require.NoError(t, err)
	assert.Equal(t, long, got[0].Text())

	b.Release()
	assert.Equal(t, []uint64{first, addr}, mem.Freed)
}

func TestBridge_TextWithNUL(t *testing.T) {
	mem := memtest.New(1 << 12)
	b := NewBridge(mem, mem, Wasm32)
	cols := schema.Columns{{Name: "s", Type: schema.Text}, {Name: "n", Type: schema.Long}}

	addr, err := b.PutRow(schema.Row{schema.TextCell("ab\x00cd"), schema.LongCell(7)})
	require.NoError(t, err)
	got, err := b.GetRow(addr, cols)
	require.NoError(t, err)
	assert.Equal(t, "ab", got[0].Text())
	assert.Equal(t, int64(7), got[1].Int())
}

func TestDecodeRow_NullText(t *testing.T) {
	mem := memtest.New(1 << 12)
	cols := schema.Columns{{Name: "s", Type: schema.Text}}
	got, err := DecodeRow(mem, Wasm32, 0x100, cols)
	require.NoError(t, err)
	assert.True(t, got[0].IsEmpty())

	_, err = DecodeRow(mem, Wasm32, 0, cols)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseABI, Kind: errors.KindNilPointer})

	Wasm32.PutPtr(mem.Data[0x100:], 0xfffff)
	_, err = DecodeRow(mem, Wasm32, 0x100, cols)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseABI, Kind: errors.KindOutOfBounds})
}

func TestHeader(t *testing.T) {
	h := string(Header)
	for _, want := range []string{"struct column", "struct row", "struct api", "COLUMN_LIST", "GRID_HIDDEN", "ROW_DISPLAY_CAP", SymAPIInit, SymAlloc} {
		assert.Contains(t, h, want)
	}
}
