// Package livid is a live-coding host for small native row processors.
//
// The user edits a C source file; on every save livid compiles it into a
// loadable module, loads it, feeds it rows from a tabular data source over
// a fixed binary contract, renders what the module hands back as an
// aligned text grid, unloads it and waits for the next save.
//
// # Architecture Overview
//
//	livid/              Root package with the Memory and Allocator interfaces
//	├── schema/         Columns, cell types, widths and tagged cell values
//	├── source/         CSV producer and the output-shaped row adapter
//	├── abi/            Binary layouts, row codec and the livid.h header
//	├── host/           Callback capability the module drives
//	├── grid/           Auto-sizing, row-capped grid renderer
//	├── loader/         Module backends: native (dlopen) and wasm (wazero)
//	├── toolchain/      Compiler invocation
//	├── workspace/      Workspace layout and truncating output sinks
//	├── lifecycle/      Stub generation and the compile/load/run/unload cycle
//	├── reload/         File watcher and the reload loop
//	├── viewer/         vim, TUI and headless viewers, refresh notifier
//	├── config/         viper-backed configuration
//	├── logging/        zap logger construction
//	├── metrics/        Prometheus collectors
//	└── errors/         Structured error types
//
// # The Binary Contract
//
// A module exports a column table, a column count, a row display cap and
// an entry point taking a callback table:
//
//	struct column { const char * name; int32_t cell_type; int16_t grid_width; };
//	struct api {
//	    struct row * (*next)(struct api *);
//	    int8_t (*grid)(struct api *, const struct row *);
//	    void (*write)(struct api *, const char *);
//	    uintptr_t host;
//	};
//	void run(struct api *);
//
// A row is one 8-byte slot per declared column followed by one bool
// empty flag per column. Text slots hold pointers into a host-owned
// buffer that is valid until the module calls next again.
//
// # Fault Isolation
//
// The native backend runs module code inside the host process; a crash in
// the module crashes the host. The wasm backend runs the same source
// compiled to WebAssembly, where faults surface as run errors.
package livid
