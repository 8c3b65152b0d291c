//go:build cgo && (linux || darwin)

package native

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

struct lv_api;
typedef void *(*lv_next_fn)(struct lv_api *);
typedef int8_t (*lv_grid_fn)(struct lv_api *, void *);
typedef void (*lv_write_fn)(struct lv_api *, const char *);
typedef void (*lv_run_fn)(struct lv_api *);

struct lv_api {
	lv_next_fn next;
	lv_grid_fn grid;
	lv_write_fn write;
	uintptr_t host;
};

extern uintptr_t lividNext(uintptr_t host);
extern int8_t lividGrid(uintptr_t host, uintptr_t row);
extern void lividWrite(uintptr_t host, uintptr_t msg);

static void *lv_tr_next(struct lv_api *api) { return (void *)lividNext(api->host); }
static int8_t lv_tr_grid(struct lv_api *api, void *row) { return lividGrid(api->host, (uintptr_t)row); }
static void lv_tr_write(struct lv_api *api, const char *msg) { lividWrite(api->host, (uintptr_t)msg); }

static struct lv_api *lv_api_new(uintptr_t host) {
	struct lv_api *api = calloc(1, sizeof *api);
	if (api == NULL) {
		return NULL;
	}
	api->next = lv_tr_next;
	api->grid = lv_tr_grid;
	api->write = lv_tr_write;
	api->host = host;
	return api;
}

static void lv_call_run(void *fn, struct lv_api *api) { ((lv_run_fn)fn)(api); }

static void *lv_ptr(uintptr_t p) { return (void *)p; }

// dlopen, reporting the dlerror text from the same call on failure.
static void *lv_dlopen(const char *path, const char **err) {
	void *h = dlopen(path, RTLD_NOW | RTLD_LOCAL);
	*err = h ? NULL : dlerror();
	return h;
}
static int lv_dlclose(void *h, const char **err) {
	int rc = dlclose(h);
	*err = rc ? dlerror() : NULL;
	return rc;
}

// Clear dlerror, call dlsym, and report the error alongside the symbol.
static void *lv_dlsym(void *h, const char *name, const char **err) {
	dlerror();
	void *p = dlsym(h, name);
	const char *e = dlerror();
	*err = e;
	return e ? NULL : p;
}
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/host"
	"github.com/wippyai/livid/loader"
)

// Supported reports whether this build can load native modules.
const Supported = true

// Loader opens shared libraries with dlopen.
type Loader struct {
	log *zap.Logger
}

var _ loader.Loader = (*Loader)(nil)

// New creates a native loader.
func New(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loader{log: opts.Logger}
}

// Load maps the shared library at path and reads its column table.
func (l *Loader) Load(ctx context.Context, path string) (loader.Module, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var cerr *C.char
	h := C.lv_dlopen(cpath, &cerr)
	if h == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInstantiation).
			Path(path).Detail("dlopen: %s", dlerrorText(cerr)).Build()
	}
	m := &Module{path: path, handle: h, log: l.log}
	if err := m.bind(); err != nil {
		m.Close(ctx)
		return nil, err
	}
	l.log.Debug("native module loaded",
		zap.String("path", path),
		zap.Int("columns", len(m.info.Columns)),
		zap.Int("row_cap", m.info.RowCap))
	return m, nil
}

// Close is a no-op; modules are closed individually.
func (l *Loader) Close(context.Context) error { return nil }

func dlerrorText(e *C.char) string {
	if e != nil {
		return C.GoString(e)
	}
	return "unknown error"
}

// Module is a mapped shared library.
type Module struct {
	handle unsafe.Pointer
	run    unsafe.Pointer
	log    *zap.Logger
	path   string
	info   abi.ModuleInfo
}

var _ loader.Module = (*Module)(nil)

func (m *Module) sym(name string, required bool) (uint64, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var cerr *C.char
	p := C.lv_dlsym(m.handle, cname, &cerr)
	if cerr != nil || p == nil {
		if required {
			return 0, errors.MissingExport(m.path, name)
		}
		return 0, nil
	}
	return uint64(uintptr(p)), nil
}

func (m *Module) bind() error {
	run, err := m.sym(abi.SymRun, true)
	if err != nil {
		return err
	}
	m.run = C.lv_ptr(C.uintptr_t(run))

	table, err := m.sym(abi.SymColumns, true)
	if err != nil {
		return err
	}
	count, err := m.sym(abi.SymColumnsCount, true)
	if err != nil {
		return err
	}
	rowCap, err := m.sym(abi.SymRowCap, false)
	if err != nil {
		return err
	}

	info, err := abi.ReadModuleInfo(cMemory{}, abi.Native, table, count, rowCap)
	if err != nil {
		return err
	}
	m.info = info
	return nil
}

func (m *Module) Info() abi.ModuleInfo { return m.info }

// Run calls run(api) on the calling goroutine. The module cannot be
// interrupted once it is running.
func (m *Module) Run(ctx context.Context, cb host.Callbacks) error {
	if m.handle == nil {
		return errors.StaleHandle(m.path)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.PhaseRun, errors.KindTrap, err, "run cancelled")
	}

	w := host.NewWire(cb, cMemory{}, cAllocator{}, abi.Native, m.info.Columns, m.log)
	defer w.Close()
	h := cgo.NewHandle(w)
	defer h.Delete()

	api := C.lv_api_new(C.uintptr_t(h))
	if api == nil {
		return errors.AllocationFailed(errors.PhaseRun, uint32(abi.Native.APISize()))
	}
	defer C.free(unsafe.Pointer(api))

	C.lv_call_run(m.run, api)
	return nil
}

// Close unmaps the library. Strings read at load time were copied, so
// nothing the host keeps points into it.
func (m *Module) Close(context.Context) error {
	if m.handle == nil {
		return nil
	}
	var cerr *C.char
	rc := C.lv_dlclose(m.handle, &cerr)
	m.handle, m.run = nil, nil
	if rc != 0 {
		return errors.New(errors.PhaseLoad, errors.KindIO).
			Path(m.path).Detail("dlclose: %s", dlerrorText(cerr)).Build()
	}
	return nil
}

func wireFor(h C.uintptr_t) *host.Wire {
	w, _ := cgo.Handle(h).Value().(*host.Wire)
	return w
}

//export lividNext
func lividNext(h C.uintptr_t) C.uintptr_t {
	w := wireFor(h)
	if w == nil {
		return 0
	}
	return C.uintptr_t(w.Next())
}

//export lividGrid
func lividGrid(h C.uintptr_t, row C.uintptr_t) C.int8_t {
	w := wireFor(h)
	if w == nil {
		return -1
	}
	return C.int8_t(w.Grid(uint64(row)))
}

//export lividWrite
func lividWrite(h C.uintptr_t, msg C.uintptr_t) {
	if w := wireFor(h); w != nil {
		w.Write(uint64(msg))
	}
}
