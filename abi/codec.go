package abi

import (
	"math"

	"github.com/wippyai/livid"
	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/schema"
)

// ModuleInfo is what the host learns from a module's exports at load time.
// It holds copies only; nothing in it points into module memory.
type ModuleInfo struct {
	Columns schema.Columns
	// RowCap is the declared row display cap; 0 means unlimited.
	RowCap int
}

// ReadModuleInfo reads the column table and row cap a module exports.
// countAddr and capAddr point at size_t values. A zero capAddr means the
// module does not export a cap and DefaultRowCap applies.
func ReadModuleInfo(mem livid.Memory, l Layout, tableAddr, countAddr, capAddr uint64) (ModuleInfo, error) {
	count, err := ReadSize(mem, l, countAddr)
	if err != nil {
		return ModuleInfo{}, err
	}
	cols, err := ReadColumns(mem, l, tableAddr, count)
	if err != nil {
		return ModuleInfo{}, err
	}

	info := ModuleInfo{Columns: cols, RowCap: DefaultRowCap}
	if capAddr != 0 {
		rowCap, err := ReadSize(mem, l, capAddr)
		if err != nil {
			return ModuleInfo{}, err
		}
		info.RowCap = int(min(rowCap, math.MaxInt32))
	}
	return info, nil
}

// ReadSize reads a size_t at addr.
func ReadSize(mem livid.Memory, l Layout, addr uint64) (uint64, error) {
	if addr == 0 {
		return 0, errors.NilPointer(errors.PhaseLoad, "size_t export")
	}
	b, err := mem.Read(addr, l.PtrSize)
	if err != nil {
		return 0, err
	}
	return l.Ptr(b), nil
}

// ReadColumns decodes count struct column entries starting at table and
// copies their names.
func ReadColumns(mem livid.Memory, l Layout, table, count uint64) (schema.Columns, error) {
	if table == 0 {
		return nil, errors.NilPointer(errors.PhaseLoad, "column table")
	}
	if count == 0 {
		return nil, errors.InvalidData(errors.PhaseLoad, "module declares no columns")
	}
	if count > MaxColumns {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Value(count).
			Detail("module declares %d columns, limit is %d", count, MaxColumns).
			Build()
	}

	size := l.ColumnSize()
	raw, err := mem.Read(table, uint32(count)*size)
	if err != nil {
		return nil, err
	}
	// Names are read below; keep our own copy of the table first.
	table0 := append([]byte(nil), raw...)

	cols := make(schema.Columns, count)
	for i := range cols {
		entry := table0[uint32(i)*size : uint32(i+1)*size]
		namePtr := l.Ptr(entry[l.ColumnNameOffset():])
		cellType := int32(l.Order.Uint32(entry[l.ColumnTypeOffset():]))
		width := int16(l.Order.Uint16(entry[l.ColumnWidthOffset():]))

		if namePtr == 0 {
			return nil, errors.New(errors.PhaseLoad, errors.KindNilPointer).
				Value(i).
				Detail("name of column %d is NULL", i).
				Build()
		}
		name, err := mem.ReadCString(namePtr)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "read column name")
		}
		if len(name) > MaxNameLength {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Value(len(name)).
				Detail("name of column %d is %d bytes, limit %d", i, len(name), MaxNameLength).
				Build()
		}
		if cellType < 0 || cellType >= schema.NumCellTypes {
			return nil, errors.InvalidEnum(errors.PhaseLoad, name, cellType, "cell_type")
		}

		cols[i] = schema.Column{
			Name:  name,
			Index: i,
			Type:  schema.CellType(cellType),
			Width: schema.WidthFromABI(width),
		}
	}
	return cols, nil
}

// EncodeColumns builds the image of a column table whose name strings
// live at names[i].
func EncodeColumns(l Layout, cols schema.Columns, names []uint64) []byte {
	size := l.ColumnSize()
	out := make([]byte, uint32(len(cols))*size)
	for i, col := range cols {
		entry := out[uint32(i)*size:]
		l.PutPtr(entry[l.ColumnNameOffset():], names[i])
		l.Order.PutUint32(entry[l.ColumnTypeOffset():], uint32(col.Type))
		l.Order.PutUint16(entry[l.ColumnWidthOffset():], uint16(col.Width.ABI()))
	}
	return out
}

// RowImageSize is the number of bytes EncodeRow produces for row: the
// struct itself followed by the NUL-terminated text payloads.
func RowImageSize(l Layout, row schema.Row) uint32 {
	size := l.RowSize(len(row))
	for _, c := range row {
		if c.Type() == schema.Text && !c.IsEmpty() {
			size += uint32(len(c.Text())) + 1
		}
	}
	return size
}

// EncodeRow builds the image of row as it must appear at address base.
// Text slots point into the image's own string area.
func EncodeRow(l Layout, base uint64, row schema.Row) []byte {
	n := len(row)
	out := make([]byte, RowImageSize(l, row))
	text := l.RowSize(n)

	for i, c := range row {
		slot := out[l.SlotOffset(i):]
		if c.IsEmpty() {
			out[l.EmptyOffset(n, i)] = 1
			continue
		}
		switch c.Type() {
		case schema.Text:
			s := c.Text()
			l.PutPtr(slot, base+uint64(text))
			// out is zeroed, so the terminator is already there. The
			// module sees text only up to its first NUL.
			copy(out[text:], s)
			text += uint32(len(s)) + 1
		default:
			l.Order.PutUint64(slot, c.Bits())
		}
	}
	return out
}

// DecodeRow reads a row shaped by cols from addr. Text slots are copied
// out of module memory. A NULL text pointer decodes as an empty cell.
func DecodeRow(mem livid.Memory, l Layout, addr uint64, cols schema.Columns) (schema.Row, error) {
	if addr == 0 {
		return nil, errors.NilPointer(errors.PhaseABI, "row")
	}
	n := len(cols)
	raw, err := mem.Read(addr, l.RowSize(n))
	if err != nil {
		return nil, err
	}
	img := append([]byte(nil), raw...)

	row := make(schema.Row, n)
	for i, col := range cols {
		if img[l.EmptyOffset(n, i)] != 0 {
			row[i] = schema.EmptyCell(col.Type)
			continue
		}
		slot := img[l.SlotOffset(i):]
		if col.Type != schema.Text {
			row[i] = schema.FromBits(col.Type, l.Order.Uint64(slot))
			continue
		}
		ptr := l.Ptr(slot)
		if ptr == 0 {
			row[i] = schema.EmptyCell(schema.Text)
			continue
		}
		s, err := mem.ReadCString(ptr)
		if err != nil {
			return nil, errors.New(errors.PhaseABI, errors.KindOutOfBounds).
				Column(col.Name).
				Cause(err).
				Detail("text pointer 0x%x", ptr).
				Build()
		}
		row[i] = schema.TextCell(s)
	}
	return row, nil
}
