package host

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/livid/grid"
	"github.com/wippyai/livid/schema"
)

// Callbacks is the capability set a running module is handed.
type Callbacks interface {
	// Next returns the next row; ok is false once the input is exhausted.
	Next() (row schema.Row, ok bool, err error)
	// Grid displays row and tells the module whether to keep going.
	Grid(row schema.Row) (grid.Status, error)
	// Write emits diagnostic text.
	Write(text string) error
}

// RowSource yields rows shaped to the module's output columns.
type RowSource interface {
	Next() (schema.Row, error)
}

// Display renders rows and text.
type Display interface {
	Grid(row schema.Row) (grid.Status, error)
	Write(text string) error
}

// Session binds a row source and a display for one run of a module. It
// records the first error and keeps counters for the run summary.
type Session struct {
	src     RowSource
	out     Display
	log     *zap.Logger
	err     error
	read    int
	shown   int
	stopped bool
	done    bool
}

var _ Callbacks = (*Session)(nil)

// NewSession creates a session. A nil logger disables logging.
func NewSession(src RowSource, out Display, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{src: src, out: out, log: log}
}

func (s *Session) Next() (schema.Row, bool, error) {
	if s.done {
		return nil, false, nil
	}
	row, err := s.src.Next()
	if err == io.EOF {
		s.done = true
		return nil, false, nil
	}
	if err != nil {
		s.done = true
		s.fail(err)
		return nil, false, err
	}
	s.read++
	return row, true, nil
}

func (s *Session) Grid(row schema.Row) (grid.Status, error) {
	st, err := s.out.Grid(row)
	if err != nil {
		s.fail(err)
		return grid.StatusError, err
	}
	s.shown++
	if st == grid.StatusStop {
		s.stopped = true
	}
	return st, nil
}

func (s *Session) Write(text string) error {
	if err := s.out.Write(text); err != nil {
		s.fail(err)
		return err
	}
	return nil
}

// Fail records err as a run error if none was recorded yet.
func (s *Session) Fail(err error) { s.fail(err) }

func (s *Session) fail(err error) {
	s.log.Warn("module callback failed", zap.Error(err))
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error seen during the run.
func (s *Session) Err() error { return s.err }

// RowsRead is the number of rows handed to the module.
func (s *Session) RowsRead() int { return s.read }

// RowsShown is the number of rows the display accepted.
func (s *Session) RowsShown() int { return s.shown }

// Stopped reports whether the display asked the module to stop.
func (s *Session) Stopped() bool { return s.stopped }
