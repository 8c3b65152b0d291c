package schema

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the rendering of Time cells.
const TimeLayout = time.DateTime

// Cell is a tagged cell value. The zero Cell is an empty Text cell.
// The payload of an empty cell is meaningless; accessors return zero values.
type Cell struct {
	text  string
	bits  uint64
	typ   CellType
	empty bool
}

// TextCell returns a Text cell.
func TextCell(s string) Cell { return Cell{typ: Text, text: s} }

// LongCell returns a Long cell.
func LongCell(v int64) Cell { return Cell{typ: Long, bits: uint64(v)} }

// TimeCell returns a Time cell holding epoch seconds.
func TimeCell(v int64) Cell { return Cell{typ: Time, bits: uint64(v)} }

// DoubleCell returns a Double cell.
func DoubleCell(v float64) Cell { return Cell{typ: Double, bits: math.Float64bits(v)} }

// EmptyCell returns an empty cell of type t.
func EmptyCell(t CellType) Cell { return Cell{typ: t, empty: true} }

// FromBits builds a non-empty numeric cell from its raw 8-byte slot.
func FromBits(t CellType, bits uint64) Cell { return Cell{typ: t, bits: bits} }

func (c Cell) Type() CellType { return c.typ }

func (c Cell) IsEmpty() bool { return c.empty }

// Text returns the payload of a Text cell.
func (c Cell) Text() string {
	if c.empty || c.typ != Text {
		return ""
	}
	return c.text
}

// Int returns the payload of a Long or Time cell.
func (c Cell) Int() int64 {
	if c.empty || (c.typ != Long && c.typ != Time) {
		return 0
	}
	return int64(c.bits)
}

// Float returns the payload of a Double cell.
func (c Cell) Float() float64 {
	if c.empty || c.typ != Double {
		return 0
	}
	return math.Float64frombits(c.bits)
}

// Bits returns the raw 8-byte slot of a numeric cell.
func (c Cell) Bits() uint64 {
	if c.empty {
		return 0
	}
	return c.bits
}

// Format renders the cell for the grid. Empty cells render as "".
func (c Cell) Format() string {
	if c.empty {
		return ""
	}
	switch c.typ {
	case Long:
		return strconv.FormatInt(int64(c.bits), 10)
	case Time:
		return time.Unix(int64(c.bits), 0).UTC().Format(TimeLayout)
	case Double:
		return strconv.FormatFloat(math.Float64frombits(c.bits), 'g', -1, 64)
	default:
		return c.text
	}
}

func (c Cell) String() string {
	if c.empty {
		return c.typ.String() + "(empty)"
	}
	return c.typ.String() + "(" + c.Format() + ")"
}

// Equal compares type, emptiness and payload. Empty cells of the same
// type are equal regardless of payload.
func (c Cell) Equal(o Cell) bool {
	if c.typ != o.typ || c.empty != o.empty {
		return false
	}
	if c.empty {
		return true
	}
	if c.typ == Text {
		return c.text == o.text
	}
	return c.bits == o.bits
}

// Parse converts raw text into a cell of type t. Text never fails; a
// numeric literal that does not parse yields an empty cell.
func Parse(t CellType, raw string) Cell {
	switch t {
	case Long, Time:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return EmptyCell(t)
		}
		return Cell{typ: t, bits: uint64(v)}
	case Double:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return EmptyCell(t)
		}
		return DoubleCell(v)
	default:
		return TextCell(raw)
	}
}

// Row is one cell per column of the current output column set.
type Row []Cell

// Equal compares two rows cell by cell.
func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if !r[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy of r.
func (r Row) Clone() Row {
	return append(Row(nil), r...)
}
