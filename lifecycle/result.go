package lifecycle

import (
	"time"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/schema"
)

// Cycle outcomes, as reported by Result.Outcome.
const (
	OutcomeOK            = "ok"
	OutcomeCompileFailed = "compile_failed"
	OutcomeLoadFailed    = "load_failed"
	OutcomeRunError      = "run_error"
	OutcomeSourceError   = "source_error"
)

// Result summarizes one reload cycle.
type Result struct {
	Err          error
	RunID        string
	Phase        errors.Phase
	Columns      schema.Columns
	RowsRead     int
	RowsRendered int
	Compile      time.Duration
	Load         time.Duration
	Run          time.Duration
	State        State
	Stopped      bool
}

// Outcome classifies the cycle for metrics.
func (r Result) Outcome() string {
	if r.Err == nil {
		return OutcomeOK
	}
	switch r.Phase {
	case errors.PhaseCompile:
		return OutcomeCompileFailed
	case errors.PhaseLoad:
		return OutcomeLoadFailed
	case errors.PhaseSource:
		return OutcomeSourceError
	default:
		return OutcomeRunError
	}
}
