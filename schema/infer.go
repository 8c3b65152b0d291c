package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// Infer proposes a type for each input column from one sample record:
// integers become Long, other floats Double, everything else Text.
// Columns without a sample value stay Text.
func Infer(names []string, sample []string) Columns {
	cols := NewColumns(names)
	for i := range cols {
		if i >= len(sample) {
			continue
		}
		cols[i].Type = guess(sample[i])
	}
	return cols
}

func guess(raw string) CellType {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Text
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Long
	}
	// ParseFloat accepts "inf" and "nan", which are more likely words.
	if _, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, "0123456789") {
		return Double
	}
	return Text
}

// Ident turns a column name into a C identifier usable as a struct row
// member. Names that would clash with a C keyword, a macro or typedef
// from the headers livid.h includes, or livid.h's own members get a
// trailing underscore; names in the implementation's reserved space get a
// leading "c".
func Ident(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	id := b.String()
	switch {
	case strings.HasPrefix(id, "__"),
		len(id) > 1 && id[0] == '_' && id[1] >= 'A' && id[1] <= 'Z',
		strings.HasPrefix(id, rowSlotPrefix):
		return "c" + id
	case reservedIdents[id], reservedMacro.MatchString(id):
		return id + "_"
	}
	return id
}

// rowSlotPrefix names the raw slot livid.h pairs with every member.
const rowSlotPrefix = "_slot_"

// reservedMacro matches the <stdint.h> limit and constant macro families.
var reservedMacro = regexp.MustCompile(
	`^(U?INT(8|16|32|64|MAX|PTR|_LEAST(8|16|32|64)|_FAST(8|16|32|64))?_(MAX|MIN|C)|(PTRDIFF|SIZE|SIG_ATOMIC|WCHAR|WINT)_(MAX|MIN)|(LV|GRID)_[A-Z0-9_]*)$`)

var reservedIdents = func() map[string]bool {
	words := []string{
		// C11 and C23 keywords, plus common extensions.
		"auto", "break", "case", "char", "const", "continue", "default", "do",
		"double", "else", "enum", "extern", "float", "for", "goto", "if",
		"inline", "int", "long", "register", "restrict", "return", "short",
		"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
		"unsigned", "void", "volatile", "while", "alignas", "alignof", "bool",
		"constexpr", "false", "nullptr", "static_assert", "thread_local",
		"true", "typeof", "typeof_unqual", "asm",
		// Object-like macros and typedefs from the included headers.
		"NULL", "EOF", "BUFSIZ", "FILENAME_MAX", "FOPEN_MAX", "L_tmpnam",
		"TMP_MAX", "SEEK_SET", "SEEK_CUR", "SEEK_END", "EXIT_SUCCESS",
		"EXIT_FAILURE", "RAND_MAX", "MB_CUR_MAX", "stdin", "stdout", "stderr",
		"errno", "FILE", "fpos_t", "va_list", "size_t", "ptrdiff_t",
		"wchar_t", "max_align_t", "div_t", "ldiv_t", "lldiv_t",
		"int8_t", "int16_t", "int32_t", "int64_t", "uint8_t", "uint16_t",
		"uint32_t", "uint64_t", "intptr_t", "uintptr_t", "intmax_t", "uintmax_t",
		// livid.h.
		"COLUMN", "COLUMN_LIST", "INPUT_COLUMNS", "ROW_DISPLAY_CAP", "LIVID_H",
		"TEXT", "LONG", "TIME", "DOUBLE", "_empty",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
