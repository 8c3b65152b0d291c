package lifecycle

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/schema"
)

// Markers around the generated block of script.c.
const (
	BeginMarker = "/* livid:begin generated */"
	EndMarker   = "/* livid:end generated */"
)

const defaultBody = `
#define COLUMN_LIST INPUT_COLUMNS
#define ROW_DISPLAY_CAP 100
#include "livid.h"

void run(struct api *api) {
    struct row *row;
    while ((row = lv_next(api)) != NULL) {
        if (lv_grid(api, row) != 0) break;
    }
}
`

// GeneratedBlock renders the INPUT_COLUMNS declaration for cols, markers
// included.
func GeneratedBlock(cols schema.Columns) string {
	var b strings.Builder
	b.WriteString(BeginMarker)
	b.WriteString("\n/* Input columns. Regenerated when the input header changes; edits here are lost. */\n")
	b.WriteString("#define INPUT_COLUMNS")
	used := make(map[string]bool, len(cols))
	for _, col := range cols {
		ident := uniqueIdent(schema.Ident(col.Name), used)
		fmt.Fprintf(&b, " \\\n    COLUMN(%s, %s, %s, %s)", ident, cQuote(col.Name), col.Type, col.Width.Macro())
	}
	b.WriteString("\n")
	b.WriteString(EndMarker)
	b.WriteString("\n")
	return b.String()
}

// uniqueIdent returns base, or the first of base_2, base_3, ... that is
// not in used, and marks the result used.
func uniqueIdent(base string, used map[string]bool) string {
	ident := base
	for n := 2; used[ident]; n++ {
		ident = schema.Ident(fmt.Sprintf("%s_%d", base, n))
	}
	used[ident] = true
	return ident
}

func cQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// RenderStub merges a fresh generated block into an existing script.
// Everything outside the markers is kept. A script without markers gets
// the block prepended; an empty script also gets the default body.
func RenderStub(existing []byte, cols schema.Columns) []byte {
	block := GeneratedBlock(cols)
	if len(bytes.TrimSpace(existing)) == 0 {
		return []byte(block + defaultBody)
	}

	s := string(existing)
	begin := strings.Index(s, BeginMarker)
	end := strings.Index(s, EndMarker)
	if begin < 0 || end < begin {
		return []byte(block + "\n" + s)
	}
	end += len(EndMarker)
	if end < len(s) && s[end] == '\n' {
		end++
	}
	return []byte(s[:begin] + block + s[end:])
}

// WriteStub updates the generated block of the script at path, leaving
// the file untouched when nothing changed. It reports whether it wrote.
func WriteStub(path string, cols schema.Columns) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, errors.IO(errors.PhaseGenerate, path, err)
	}
	next := RenderStub(existing, cols)
	if bytes.Equal(existing, next) {
		return false, nil
	}
	if err := os.WriteFile(path, next, 0o644); err != nil {
		return false, errors.IO(errors.PhaseGenerate, path, err)
	}
	return true, nil
}
