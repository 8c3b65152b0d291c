package grid

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/schema"
)

// Status is the value grid returns to the module.
type Status int8

const (
	StatusError    Status = -1
	StatusContinue Status = 0
	StatusStop     Status = 1
)

const (
	cellSep   = " | "
	headerSep = "-+-"
	ellipsis  = "…"
)

// ErrLimitExceeded is returned for rows submitted after the renderer
// signalled stop.
var ErrLimitExceeded = errors.Contract("grid called after the row display limit was reached")

// Notifier is told when new output is available. Forced notifications
// must not be rate limited.
type Notifier interface {
	Notify(force bool)
}

// Options configures a Renderer.
type Options struct {
	Notifier Notifier
	Logger   *zap.Logger
	// Cap is the number of data rows displayed before stopping; 0 is
	// unlimited.
	Cap int
}

// Renderer writes rows as a right-aligned text table. Auto widths only
// ever grow, so rows rendered earlier stay as they were written.
type Renderer struct {
	w       io.Writer
	cols    schema.Columns
	widths  []int
	notify  Notifier
	log     *zap.Logger
	cap     int
	rows    int
	started bool
	stopped bool
}

// New creates a renderer for one run over cols.
func New(w io.Writer, cols schema.Columns, opts Options) *Renderer {
	r := &Renderer{
		w:      w,
		cols:   cols,
		widths: make([]int, len(cols)),
		notify: opts.Notifier,
		log:    opts.Logger,
		cap:    max(opts.Cap, 0),
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	for i, col := range cols {
		switch col.Width.Kind() {
		case schema.WidthHidden:
		case schema.WidthFixed:
			r.widths[i] = col.Width.N()
		default:
			r.widths[i] = runewidth.StringWidth(col.Name)
		}
	}
	return r
}

// Grid renders one data row, preceded by the header on the first call.
func (r *Renderer) Grid(row schema.Row) (Status, error) {
	if r.stopped {
		r.log.Warn("grid called after stop", zap.Int("cap", r.cap), zap.Int("rows", r.rows))
		return StatusError, ErrLimitExceeded
	}
	if len(row) != len(r.cols) {
		err := errors.Contract("row has %d cells, module declares %d columns", len(row), len(r.cols))
		r.log.Warn("malformed row", zap.Error(err))
		return StatusError, err
	}

	texts := make([]string, len(row))
	for i, cell := range row {
		texts[i] = cell.Format()
		if r.cols[i].Width.Kind() == schema.WidthAuto {
			r.widths[i] = max(r.widths[i], runewidth.StringWidth(texts[i]))
		}
	}

	var b strings.Builder
	first := !r.started
	if first {
		r.started = true
		r.header(&b)
	}
	r.line(&b, texts)
	r.rows++

	status := StatusContinue
	if r.cap > 0 && r.rows >= r.cap {
		r.stopped = true
		status = StatusStop
		fmt.Fprintf(&b, "-- row display limit of %d reached --\n", r.cap)
	}

	if _, err := io.WriteString(r.w, b.String()); err != nil {
		return StatusError, errors.Wrap(errors.PhaseRun, errors.KindIO, err, "write grid output")
	}
	if r.notify != nil {
		r.notify.Notify(first || r.stopped)
	}
	return status, nil
}

func (r *Renderer) header(b *strings.Builder) {
	names := make([]string, len(r.cols))
	seps := make([]string, len(r.cols))
	for i, col := range r.cols {
		names[i] = col.Name
		seps[i] = strings.Repeat("-", r.widths[i])
	}
	r.line(b, names)
	r.join(b, seps, headerSep)
}

func (r *Renderer) line(b *strings.Builder, texts []string) {
	cells := make([]string, len(texts))
	for i, s := range texts {
		w := r.widths[i]
		if runewidth.StringWidth(s) > w {
			s = runewidth.Truncate(s, w, ellipsis)
		}
		cells[i] = runewidth.FillLeft(s, w)
	}
	r.join(b, cells, cellSep)
}

func (r *Renderer) join(b *strings.Builder, cells []string, sep string) {
	n := 0
	for i, s := range cells {
		if r.cols[i].Width.Kind() == schema.WidthHidden {
			continue
		}
		if n > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s)
		n++
	}
	b.WriteByte('\n')
}

// Write appends text to the output verbatim.
func (r *Renderer) Write(text string) error {
	if _, err := io.WriteString(r.w, text); err != nil {
		return errors.Wrap(errors.PhaseRun, errors.KindIO, err, "write diagnostic output")
	}
	if r.notify != nil {
		r.notify.Notify(false)
	}
	return nil
}

// Widths returns the current resolved width of each column; hidden
// columns report 0.
func (r *Renderer) Widths() []int {
	return append([]int(nil), r.widths...)
}

// Rows is the number of data rows rendered.
func (r *Renderer) Rows() int { return r.rows }

// Stopped reports whether the row display limit was reached.
func (r *Renderer) Stopped() bool { return r.stopped }
