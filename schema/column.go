package schema

import (
	"fmt"
	"strings"
)

// CellType is the type tag of a column. The numeric values are part of
// the binary contract.
type CellType uint8

const (
	Text   CellType = 0
	Long   CellType = 1
	Time   CellType = 2
	Double CellType = 3
)

// NumCellTypes is the number of valid cell types.
const NumCellTypes = 4

var cellTypeNames = [NumCellTypes]string{"TEXT", "LONG", "TIME", "DOUBLE"}

// String returns the C tag name used in column declarations.
func (t CellType) String() string {
	if t.Valid() {
		return cellTypeNames[t]
	}
	return fmt.Sprintf("CellType(%d)", uint8(t))
}

// Valid reports whether t is one of the four defined cell types.
func (t CellType) Valid() bool {
	return t < NumCellTypes
}

// ParseCellType parses a tag name such as "LONG" (case-insensitive).
func ParseCellType(s string) (CellType, error) {
	for i, name := range cellTypeNames {
		if strings.EqualFold(s, name) {
			return CellType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cell type %q", s)
}

// WidthKind selects how a column's display width is resolved.
type WidthKind uint8

const (
	WidthAuto WidthKind = iota
	WidthHidden
	WidthFixed
)

// Width is a column's display width policy.
type Width struct {
	kind WidthKind
	n    int
}

// Auto sizes the column to the widest value seen so far.
func Auto() Width { return Width{kind: WidthAuto} }

// Hidden removes the column from the grid.
func Hidden() Width { return Width{kind: WidthHidden} }

// Fixed pins the column to n terminal cells. n < 1 yields Auto.
func Fixed(n int) Width {
	if n < 1 {
		return Auto()
	}
	return Width{kind: WidthFixed, n: n}
}

func (w Width) Kind() WidthKind { return w.kind }

// N returns the fixed width, or 0 for Auto and Hidden.
func (w Width) N() int { return w.n }

// WidthFromABI decodes the int16 grid_width field: 0 is Auto, negative
// values are Hidden, positive values are Fixed.
func WidthFromABI(v int16) Width {
	switch {
	case v == 0:
		return Auto()
	case v < 0:
		return Hidden()
	default:
		return Fixed(int(v))
	}
}

// ABI encodes w as the int16 grid_width field.
func (w Width) ABI() int16 {
	switch w.kind {
	case WidthHidden:
		return -1
	case WidthFixed:
		if w.n > 1<<15-1 {
			return 1<<15 - 1
		}
		return int16(w.n)
	default:
		return 0
	}
}

// Macro returns the C spelling used in generated declarations.
func (w Width) Macro() string {
	switch w.kind {
	case WidthHidden:
		return "GRID_HIDDEN"
	case WidthFixed:
		return fmt.Sprintf("GRID_WIDTH(%d)", w.n)
	default:
		return "GRID_AUTO"
	}
}

func (w Width) String() string {
	switch w.kind {
	case WidthHidden:
		return "hidden"
	case WidthFixed:
		return fmt.Sprintf("fixed(%d)", w.n)
	default:
		return "auto"
	}
}

// Column describes one column of an input or output column set.
type Column struct {
	Name  string
	Index int
	Type  CellType
	Width Width
}

// Columns is an ordered column set.
type Columns []Column

// NewColumns builds a column set from names, all typed Text with Auto width.
func NewColumns(names []string) Columns {
	cols := make(Columns, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Index: i, Type: Text, Width: Auto()}
	}
	return cols
}

// Names returns the column names in order.
func (c Columns) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// Lookup returns the index of the first column named name.
func (c Columns) Lookup(name string) (int, bool) {
	for i, col := range c {
		if col.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Signature is a stable fingerprint of names and types, used to detect a
// changed input column set.
func (c Columns) Signature() string {
	var b strings.Builder
	for i, col := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(col.Name)
		b.WriteByte(':')
		b.WriteString(col.Type.String())
	}
	return b.String()
}
