package abi

import _ "embed"

// HeaderName is the file name scripts include.
const HeaderName = "livid.h"

// Header is the C header describing the column table, row and callback
// layouts. The workspace writes it next to the script.
//
//go:embed livid.h
var Header []byte

// Exported symbol names.
const (
	SymColumns      = "columns"
	SymColumnsCount = "columns_count"
	SymRowCap       = "row_display_cap"
	SymRun          = "run"
	SymAPIInit      = "lv_api_init"
	SymAlloc        = "lv_alloc"
	SymFree         = "lv_free"
)
